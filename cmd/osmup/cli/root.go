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

// Package cli holds the root command and shared CLI helpers.
package cli

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd is the root of the osmup command tree; subcommands register
// themselves in their package init.
var RootCmd = &cobra.Command{
	Use:   "osmup",
	Short: "Bulk-upload OSM edit files through the 0.6 API",
	Long: `osmup uploads large JOSM-style .osm edit files to the OpenStreetMap API,
splitting them into changesets and diff sets and remembering the ids the
server assigns so an interrupted upload can be resumed.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		quiet, err := cmd.Flags().GetBool("quiet")
		if err != nil {
			log.Fatal(err)
		}

		level := slog.LevelInfo
		if quiet {
			level = slog.LevelWarn
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	RootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log warnings and errors")
}
