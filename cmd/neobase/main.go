// Command neobase prints points of reference from the OpenTravelData dataset.
//
// Usage:
//
//	neobase [flags] KEY...
//
// With no search flag every KEY is looked up and its attributes printed; the
// exit status is 1 if any KEY is unknown. --field searches every entry whose
// field contains KEY, --radius lists the entries around KEY. A single "-"
// reads keys from standard input.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/joho/godotenv"
	"golang.org/x/text/cases"

	"github.com/alexprengere/neobase"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	date          string
	field         string
	word          bool
	invert        bool
	caseSensitive bool
	fuzzy         int
	radius        float64
	show          string
	envFile       string
	version       bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	o := &options{radius: -1}
	fs := flag.NewFlagSet("neobase", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.date, "date", "", "reference date (YYYY-MM-DD) to compute active points of reference")
	fs.StringVar(&o.field, "field", "", "search by a specific field instead of key")
	fs.StringVar(&o.field, "f", "", "shorthand for --field")
	fs.BoolVar(&o.word, "word", false, "like 'grep -w', only match whole words with --field")
	fs.BoolVar(&o.word, "w", false, "shorthand for --word")
	fs.BoolVar(&o.invert, "invert-match", false, "like 'grep -v', select non-matching with --field")
	fs.BoolVar(&o.invert, "v", false, "shorthand for --invert-match")
	fs.BoolVar(&o.caseSensitive, "case-sensitive", false, "make the matching case-sensitive with --field")
	fs.BoolVar(&o.caseSensitive, "c", false, "shorthand for --case-sensitive")
	fs.IntVar(&o.fuzzy, "fuzzy", 0, "with --field, tolerate this many edits per word (Levenshtein)")
	fs.Float64Var(&o.radius, "radius", -1, "search by radius, in kms")
	fs.Float64Var(&o.radius, "r", -1, "shorthand for --radius")
	fs.StringVar(&o.show, "show", "", "comma-separated fields; output is CSV with those fields")
	fs.StringVar(&o.envFile, "env-file", "", "load OPTD_POR_* variables from this file")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return o, fs.Args(), nil
}

func newLogger(stderr io.Writer) *slog.Logger {
	lvl := slog.LevelWarn
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		return slog.New(slog.NewJSONHandler(stderr, hopts))
	}
	return slog.New(slog.NewTextHandler(stderr, hopts))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, keys, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	if o.version {
		fmt.Fprintf(stdout, "NeoBase, version %s\n", version)
		return 0
	}
	if len(keys) == 0 {
		fmt.Fprintln(stderr, "neobase: at least one KEY is required")
		return 2
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			fmt.Fprintf(stderr, "neobase: %v\n", err)
			return 2
		}
	}
	logger := newLogger(stderr)

	opts := []neobase.Option{neobase.WithLogger(logger)}
	if o.date != "" {
		d, err := time.Parse("2006-01-02", o.date)
		if err != nil {
			fmt.Fprintf(stderr, "neobase: --date: %v\n", err)
			return 2
		}
		opts = append(opts, neobase.WithDate(d))
	}

	b, err := neobase.New(opts...)
	if err != nil {
		logger.Error("load failed", "error", err)
		fmt.Fprintf(stderr, "neobase: %v\n", err)
		return 2
	}

	if len(keys) == 1 && keys[0] == "-" {
		keys = readKeys(stdin)
	}

	p := &printer{base: b, out: stdout}
	if o.show != "" {
		p.show = strings.Split(o.show, ",")
		p.csv = csv.NewWriter(stdout)
		defer p.csv.Flush()
	} else {
		fmt.Fprintf(stdout, "%d points of reference\n", b.Len())
	}

	switch {
	case o.field != "":
		return p.searchField(keys, o)
	case o.radius >= 0:
		return p.searchRadius(keys, o.radius)
	}
	return p.lookup(keys)
}

func readKeys(r io.Reader) []string {
	var keys []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if k := strings.TrimSpace(sc.Text()); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

type printer struct {
	base *neobase.Base
	out  io.Writer
	show []string
	csv  *csv.Writer
}

// center pads s with '*' on both sides to width, extra padding going right.
func center(s string, width int) string {
	n := width - len([]rune(s))
	if n <= 0 {
		return s
	}
	left := n / 2
	return strings.Repeat("*", left) + s + strings.Repeat("*", n-left)
}

func (p *printer) value(key, field string) string {
	v, err := p.base.GetFirst(key, field)
	if err != nil {
		return ""
	}
	return formatValue(v)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(t, ",")
	case float64:
		return fmt.Sprintf("%g", t)
	}
	return fmt.Sprint(v)
}

func (p *printer) writeCSV(key string) {
	row := make([]string, len(p.show))
	for i, f := range p.show {
		row[i] = p.value(key, f)
	}
	p.csv.Write(row)
}

func (p *printer) summary(key string) string {
	lt, _ := p.base.GetFirst(key, "location_type")
	types, _ := lt.([]string)
	rank := "-"
	if v, err := p.base.GetFirst(key, "page_rank"); err == nil {
		if f, ok := v.(float64); ok {
			rank = fmt.Sprintf("%.1f%%", f*100)
		}
	}
	return fmt.Sprintf("%-8s %-6s %-60s %-30s %5s",
		key, strings.Join(types, ""), p.value(key, "name"), p.value(key, "country_name"), rank)
}

func (p *printer) searchField(needles []string, o *options) int {
	fold := cases.Fold()
	if p.base.Schema().FieldIndex(o.field) < 0 {
		fmt.Fprintf(p.out, "unknown field %q\n", o.field)
		return 2
	}
	for _, needle := range needles {
		if p.csv == nil {
			fmt.Fprintf(p.out, "\n%s\n", center(fmt.Sprintf("  %s=%s  ", o.field, needle), 112))
		}
		if !o.caseSensitive {
			needle = fold.String(needle)
		}
		for key := range p.base.Keys() {
			haystack := p.value(key, o.field)
			if !o.caseSensitive {
				haystack = fold.String(haystack)
			}
			if matchField(needle, haystack, o.word, o.fuzzy) == o.invert {
				continue
			}
			if p.csv != nil {
				p.writeCSV(key)
			} else {
				fmt.Fprintln(p.out, p.summary(key))
			}
		}
	}
	return 0
}

// matchField reports whether needle occurs in haystack. With word, needle must
// equal one of the whitespace-separated words; fuzzy allows that many edits
// per word.
func matchField(needle, haystack string, word bool, fuzzy int) bool {
	if !word && fuzzy == 0 {
		return strings.Contains(haystack, needle)
	}
	for _, w := range strings.FieldsFunc(haystack, func(r rune) bool { return r == ' ' || r == ',' }) {
		if w == needle {
			return true
		}
		if fuzzy > 0 && levenshtein.ComputeDistance(w, needle) <= fuzzy {
			return true
		}
	}
	return !word && strings.Contains(haystack, needle)
}

func (p *printer) searchRadius(keys []string, radius float64) int {
	status := 0
	for _, key := range keys {
		if p.csv == nil {
			fmt.Fprintf(p.out, "\n%s\n", center(fmt.Sprintf("  %s(+%gkm)  ", key, radius), 116))
		}
		near, err := p.base.FindNear(key, radius)
		if err != nil {
			fmt.Fprintf(p.out, "'%s' not found in data.\n", key)
			status = 1
			continue
		}
		for _, n := range near {
			if p.csv != nil {
				p.writeCSV(n.Key)
				continue
			}
			lt, _ := p.base.GetFirst(n.Key, "location_type")
			types, _ := lt.([]string)
			fmt.Fprintf(p.out, "%-8s %-6s %-60s %-30s %7.1fkm\n",
				n.Key, strings.Join(types, ""), p.value(n.Key, "name"), p.value(n.Key, "country_name"), n.Distance)
		}
	}
	return status
}

func (p *printer) lookup(keys []string) int {
	status := 0
	var known []string
	for _, key := range keys {
		if p.base.Contains(key) {
			known = append(known, key)
			continue
		}
		fmt.Fprintf(p.out, "'%s' not found in data.\n", key)
		status = 1
	}

	for _, key := range known {
		if p.csv != nil {
			p.writeCSV(key)
			continue
		}
		fmt.Fprintf(p.out, "\n%s\n", center(fmt.Sprintf("  %s  ", key), 55))
		rec, _ := p.base.Record(key)
		values := rec.Values()
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(p.out, "%-20s%v\n", name, formatValue(values[name]))
		}
		if dups := p.base.Duplicates(key); len(dups) > 0 {
			fmt.Fprintf(p.out, "%-20s%v\n", "__dup__", strings.Join(dups, ","))
		}
		if gh, err := p.base.Geohash(key, 9); err == nil {
			fmt.Fprintf(p.out, "%-20s%v\n", "__geohash__", gh)
		}
	}
	return status
}
