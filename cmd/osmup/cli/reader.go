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

package cli

import (
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/spf13/pflag"
	"github.com/ulikunitz/xz"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// -- *os.File Value
type readerValue struct {
	value    **os.File
	typename string
}

// NewReaderValue creates a cobra Value object for an *os.File.
func NewReaderValue(def *os.File, p **os.File, typename string) pflag.Value {
	bbv := &readerValue{
		value:    p,
		typename: typename,
	}
	*bbv.value = def

	return bbv
}

func (r *readerValue) Set(val string) error {
	f, err := os.Open(val)
	if err != nil {
		return err
	}

	*r.value = f

	return nil
}

func (r *readerValue) Type() string {
	return r.typename
}

func (r *readerValue) String() string {
	if *r.value == nil {
		return ""
	}

	return (*r.value).Name()
}

// progressReader is an io.ReadCloser whose reads come from the possibly
// decompressed stream while the associated ProgressBar tracks raw bytes
// consumed from the file. Closing it closes the file and clears the
// terminal line of progress output.
type progressReader struct {
	r   io.Reader
	f   *os.File
	bar *pb.ProgressBar
}

// WrapInputFile wraps an input file with a byte ProgressBar and, for the
// well-known suffixes .gz, .zst, .xz, .lz4, and .bz2, transparent
// decompression. Stdin is passed through untouched.
func WrapInputFile(f *os.File) (io.ReadCloser, error) {
	if f == os.Stdin {
		// don't bother wrapping stdin
		return os.Stdin, nil
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	total := int(fi.Size())

	bar := pb.New(total).SetUnits(pb.U_BYTES_DEC).SetWidth(79)
	bar.Output = os.Stderr
	bar.Start()

	r, err := decompress(f.Name(), bar.NewProxyReader(f))
	if err != nil {
		return nil, err
	}

	return &progressReader{r: r, f: f, bar: bar}, nil
}

func decompress(name string, r io.Reader) (io.Reader, error) {
	switch filepath.Ext(name) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}

		return zr, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}

		return zr, nil
	case ".xz":
		zr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}

		return zr, nil
	case ".lz4":
		return lz4.NewReader(r), nil
	case ".bz2":
		return bzip2.NewReader(r), nil
	default:
		return r, nil
	}
}

// Read implements io.Reader.Read by simple delegation.
func (p *progressReader) Read(buf []byte) (int, error) {
	return p.r.Read(buf)
}

// Close implements io.Closer.Close by closing the underlying file as well
// as clearing the terminal line of progress output.
func (p *progressReader) Close() error {
	// make sure newline is not printed by Finish()
	p.bar.Output = nil
	p.bar.NotPrint = true

	p.bar.Finish()

	fmt.Fprintf(os.Stderr, "\033[2K\r") // clear status bar

	return p.f.Close()
}
