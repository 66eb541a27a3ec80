package neobase

import (
	"compress/bzip2"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

//go:embed data/optd_por_public.csv.zst
var embeddedData embed.FS

// DefaultDataFile is the embedded dataset, zstd-compressed. cmd/update-data
// regenerates it from OPTDPORURL.
const DefaultDataFile = "data/optd_por_public.csv.zst"

// OPTDPORURL is the canonical location of the upstream dataset.
const OPTDPORURL = "https://raw.githubusercontent.com/opentraveldata/opentraveldata/" +
	"master/opentraveldata/optd_por_public.csv"

// openSource resolves the configured dataset. The returned name identifies the
// source in logs and errors.
func openSource(cfg *Config) (r io.Reader, name string, closeFn func() error, err error) {
	if cfg.Reader != nil {
		return cfg.Reader, "reader", func() error { return nil }, nil
	}
	if cfg.File != "" {
		r, closeFn, err := openDataFile(cfg.File)
		if err != nil {
			return nil, cfg.File, nil, &LoadError{Source: cfg.File, Err: err}
		}
		return r, cfg.File, closeFn, nil
	}
	name = "embedded:" + DefaultDataFile
	fh, err := embeddedData.Open(DefaultDataFile)
	if err != nil {
		return nil, name, nil, &LoadError{Source: name, Err: err}
	}
	r, closeFn, err = decompress(DefaultDataFile, fh)
	if err != nil {
		fh.Close()
		return nil, name, nil, &LoadError{Source: name, Err: err}
	}
	return r, name, closeBoth(closeFn, fh.Close), nil
}

// openDataFile opens path, decompressing it according to its extension.
func openDataFile(path string) (io.Reader, func() error, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	r, closeFn, err := decompress(path, fh)
	if err != nil {
		fh.Close()
		return nil, nil, err
	}
	return r, closeBoth(closeFn, fh.Close), nil
}

// decompress wraps r in a decoder chosen by the suffix of name. The returned
// function releases the decoder only; closing r stays with the caller.
func decompress(name string, r io.Reader) (io.Reader, func() error, error) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, zr.Close, nil
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		rc := zr.IOReadCloser()
		return rc, rc.Close, nil
	case strings.HasSuffix(name, ".bz2"):
		return bzip2.NewReader(r), noClose, nil
	}
	return r, noClose, nil
}

func noClose() error { return nil }

func closeBoth(inner, outer func() error) func() error {
	return func() error {
		err := inner()
		if cerr := outer(); err == nil {
			err = cerr
		}
		return err
	}
}
