// Command update-data refreshes the embedded dataset from OpenTravelData.
//
// Usage:
//
//	go run ./cmd/update-data [-url URL] [-out data/optd_por_public.csv.zst]
//
// The file is downloaded, stripped of comment lines and sorted by code, then
// location type, then geoname id, which is the order the loader relies on to
// rank airports before the cities sharing their code. An output path ending
// in .zst is written zstd-compressed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/alexprengere/neobase"
)

// httpClient is a shared HTTP client with reasonable timeouts.
var httpClient = &http.Client{
	Timeout: 60 * time.Second,
}

func main() {
	url := flag.String("url", neobase.OPTDPORURL, "dataset location")
	out := flag.String("out", neobase.DefaultDataFile, "output file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("refreshing dataset", "url", *url, "out", *out)

	n, err := update(*url, *out)
	if err != nil {
		logger.Error("refresh failed", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset refreshed", "rows", n)
}

func update(url, path string) (int, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	}
	return writeAtomically(path, func(w io.Writer) (int, error) {
		return refresh(resp.Body, w)
	})
}

// writeAtomically writes through a temporary file in path's directory and
// renames it over path only once fn succeeded.
func writeAtomically(path string, fn func(io.Writer) (int, error)) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".optd-*.csv")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	w, closeFn, err := encode(path, bw)
	if err != nil {
		return 0, err
	}
	n, err := fn(w)
	if err != nil {
		return 0, err
	}
	if err := closeFn(); err != nil {
		return 0, fmt.Errorf("compressing %s: %w", tmp.Name(), err)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("renaming to %s: %w", path, err)
	}
	success = true
	return n, nil
}

// encode wraps w in a zstd encoder when path ends in .zst.
func encode(path string, w io.Writer) (io.Writer, func() error, error) {
	if !strings.HasSuffix(path, ".zst") {
		return w, func() error { return nil }, nil
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, nil, err
	}
	return zw, zw.Close, nil
}

// refresh copies the header of r, drops comment and blank lines, and writes
// the remaining rows in loader order. It returns the number of rows written.
func refresh(r io.Reader, w io.Writer) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var header string
	var rows [][]string
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if first {
			header, first = line, false
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, strings.Split(line, "^"))
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading dataset: %w", err)
	}
	if first {
		return 0, fmt.Errorf("reading dataset: empty input")
	}

	sortRows(rows)

	if _, err := fmt.Fprintln(w, header); err != nil {
		return 0, err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "^")); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

// sortRows orders rows by code, then location type, then numeric geoname id.
// Rows with an unparsable id sort after the others of their code and type;
// the sort is stable so remaining ties keep their download order.
func sortRows(rows [][]string) {
	col := func(row []string, i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	id := func(row []string) (int64, bool) {
		v, err := strconv.ParseInt(col(row, neobase.GeonameIDColumn), 10, 64)
		return v, err == nil
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if ka, kb := col(a, 0), col(b, 0); ka != kb {
			return ka < kb
		}
		if ta, tb := col(a, neobase.LocationTypeColumn), col(b, neobase.LocationTypeColumn); ta != tb {
			return ta < tb
		}
		ia, oka := id(a)
		ib, okb := id(b)
		if oka != okb {
			return oka
		}
		return ia < ib
	})
}
