// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package upload implements the upload subcommand.
package upload

import (
	"fmt"
	"io"
	"log"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	osmup "github.com/Beakerboy/OSM-bulk-upload"
	"github.com/Beakerboy/OSM-bulk-upload/cmd/osmup/cli"
	"github.com/Beakerboy/OSM-bulk-upload/internal/changeset"
	"github.com/Beakerboy/OSM-bulk-upload/internal/idmap"
	"github.com/Beakerboy/OSM-bulk-upload/internal/osmapi"
)

var out io.Writer = os.Stdout

var input *os.File

func init() {
	cli.RootCmd.AddCommand(uploadCmd)

	flags := uploadCmd.Flags()
	flags.VarP(cli.NewReaderValue(nil, &input, "file"), "input", "i", "read data from the .osm file")
	flags.StringP("user", "u", "", "username")
	flags.StringP("password", "p", "", "password")
	flags.StringP("comment", "c", "", "changeset comment")
	flags.String("api", osmapi.DefaultHost, "API endpoint")
	flags.String("idmap", "", "id map file (default <input>.db)")
	flags.Int("diff-limit", changeset.DefaultDiffSetLimit, "edits per uploaded diff set")
	flags.Int("changeset-limit", changeset.DefaultChangesetLimit, "edits per changeset")
	flags.Bool("no-gzip", false, "send diff uploads uncompressed")

	for _, name := range []string{"input", "user", "password", "comment"} {
		if err := uploadCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a .osm edit file to the OSM API",
	Long: `Upload a .osm edit file to the OSM API.

After every accepted diff set the placeholder-to-permanent id mappings are
saved next to the input file, so re-running the same command resumes an
interrupted upload instead of duplicating it. Delete the id map file if the
input file's contents change.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()

		user := mustString(flags.GetString("user"))
		password := mustString(flags.GetString("password"))
		comment := mustString(flags.GetString("comment"))
		api := mustString(flags.GetString("api"))
		idmapPath := mustString(flags.GetString("idmap"))

		diffLimit, err := flags.GetInt("diff-limit")
		if err != nil {
			log.Fatal(err)
		}

		changesetLimit, err := flags.GetInt("changeset-limit")
		if err != nil {
			log.Fatal(err)
		}

		noGzip, err := flags.GetBool("no-gzip")
		if err != nil {
			log.Fatal(err)
		}

		in, err := cli.WrapInputFile(input)
		if err != nil {
			log.Fatal(err)
		}

		doc, err := osmup.ReadDocument(in)
		if err != nil {
			log.Fatal(err)
		}

		if err := in.Close(); err != nil {
			log.Fatal(err)
		}

		if idmapPath == "" {
			idmapPath = input.Name() + ".db"
		}

		ids := idmap.New(idmapPath)
		ids.Load()

		copts := []osmapi.ClientOption{osmapi.WithHost(api)}
		if noGzip {
			copts = append(copts, osmapi.WithoutGzip())
		}

		client := osmapi.NewClient(user, password, copts...)

		tags := map[string]string{
			"created_by": osmapi.DefaultUserAgent,
			"comment":    comment,
		}

		uploader := osmup.NewUploader(client, ids, tags,
			osmup.WithDiffSetLimit(diffLimit),
			osmup.WithChangesetLimit(changesetLimit))

		summary, err := uploader.Run(doc)
		renderSummary(summary)

		if err != nil {
			log.Fatal(err)
		}
	},
}

func mustString(v string, err error) string {
	if err != nil {
		log.Fatal(err)
	}

	return v
}

func renderSummary(s osmup.Summary) {
	fmt.Fprintf(out, "ElementsSubmitted: %s\n", humanize.Comma(int64(s.ElementsSubmitted)))
	fmt.Fprintf(out, "ElementsSkipped: %s\n", humanize.Comma(int64(s.ElementsSkipped)))
	fmt.Fprintf(out, "DiffSetsUploaded: %s\n", humanize.Comma(int64(s.DiffSetsUploaded)))
	fmt.Fprintf(out, "ChangesetsUsed: %s\n", humanize.Comma(int64(s.ChangesetsUsed)))
}
