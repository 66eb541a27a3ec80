package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexprengere/neobase"
)

// row builds a caret-delimited line with the given code, geoname id and
// location type; other columns are empty.
func row(code, id, locType string) string {
	cols := make([]string, 51)
	cols[0] = code
	cols[neobase.GeonameIDColumn] = id
	cols[neobase.LocationTypeColumn] = locType
	return strings.Join(cols, "^")
}

func TestSortRows(t *testing.T) {
	rows := [][]string{
		strings.Split(row("NCE", "6299418", "C"), "^"),
		strings.Split(row("NCE", "2990440", "A"), "^"),
		strings.Split(row("KMG", "8395366", "A"), "^"),
		strings.Split(row("KMG", "1804645", "A"), "^"),
		strings.Split(row("KMG", "", "A"), "^"),
		strings.Split(row("AAE", "2570559", "CA"), "^"),
		{"BAD"},
	}
	sortRows(rows)

	var got []string
	for _, r := range rows {
		id := ""
		if len(r) > neobase.GeonameIDColumn {
			id = r[neobase.GeonameIDColumn]
		}
		got = append(got, r[0]+"/"+id)
	}
	assert.Equal(t, []string{
		"AAE/2570559",
		"BAD/",
		"KMG/1804645",
		"KMG/8395366",
		"KMG/",
		"NCE/2990440",
		"NCE/6299418",
	}, got)
}

// Numeric ids must not sort as strings.
func TestSortRows_NumericID(t *testing.T) {
	rows := [][]string{
		strings.Split(row("XXX", "10", "A"), "^"),
		strings.Split(row("XXX", "9", "A"), "^"),
	}
	sortRows(rows)
	assert.Equal(t, "9", rows[0][neobase.GeonameIDColumn])
}

func TestRefresh(t *testing.T) {
	input := strings.Join([]string{
		"iata_code^icao_code",
		"# comment",
		row("NCE", "6299418", "C"),
		"",
		row("NCE", "2990440", "A") + "\r",
		"#" + row("AAA", "1", "A"),
		row("CDG", "6269554", "A"),
	}, "\n")

	var out bytes.Buffer
	n, err := refresh(strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "iata_code^icao_code", lines[0])
	assert.Equal(t, row("CDG", "6269554", "A"), lines[1])
	assert.Equal(t, row("NCE", "2990440", "A"), lines[2])
	assert.Equal(t, row("NCE", "6299418", "C"), lines[3])

	_, err = refresh(strings.NewReader(""), io.Discard)
	assert.ErrorContains(t, err, "empty input")
}

// The sample dataset is already in refresh order.
func TestRefresh_BundledDataIsSorted(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "testdata", "optd_por_sample.csv"))
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = refresh(bytes.NewReader(raw), &out)
	require.NoError(t, err)
	assert.Equal(t, string(raw), out.String())
}

func TestWriteAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "por.csv")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	_, err := writeAtomically(path, func(w io.Writer) (int, error) {
		io.WriteString(w, "partial")
		return 0, errors.New("boom")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(data), "failed write must leave the target untouched")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be removed")

	n, err := writeAtomically(path, func(w io.Writer) (int, error) {
		_, err := io.WriteString(w, "new\n")
		return 1, err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestUpdate(t *testing.T) {
	body := "iata_code^icao_code\n" + row("ORY", "2988500", "A") + "\n" + row("CDG", "6269554", "A") + "\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/optd_por_public.csv" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "por.csv")
	n, err := update(srv.URL+"/optd_por_public.csv", path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "iata_code^icao_code\nCDG^"))

	_, err = update(srv.URL+"/missing", path)
	assert.ErrorContains(t, err, "status 404")

	zpath := filepath.Join(t.TempDir(), "por.csv.zst")
	n, err = update(srv.URL+"/optd_por_public.csv", zpath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	raw, err := os.ReadFile(zpath)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(raw, []byte("iata_code")), "output should be compressed")

	b, err := neobase.New(neobase.WithFile(zpath), neobase.WithDate(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())
	assert.True(t, b.Contains("ORY"))
	assert.Equal(t, []string{"CDG", "ORY"}, slices.Collect(b.Keys()))
}
