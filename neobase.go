// Package neobase loads the OpenTravelData points of reference (airports,
// cities, stations identified by an IATA-style code) into an immutable
// in-memory index and answers attribute and distance queries against it.
//
//	b, err := neobase.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cities, _ := b.Get("ORY", "city_code_list") // []string{"PAR"}
//	km, _ := b.Distance("ORY", "CDG")           // ~34.87
//
// The loader trusts the input order: the upstream refresh procedure sorts the
// file by code, then location type, then geoname id, so that airports come
// before the cities sharing their code. A Base is safe for concurrent use
// once built.
package neobase

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"
)

// Base is a read-only index of points of reference.
type Base struct {
	schema     Schema
	date       time.Time
	duplicates bool

	records []Record         // all retained records, input order
	entries []string         // record position -> entry key, aliases included
	index   map[string]int   // entry key -> record position
	groups  map[string][]int // primary key -> record positions, group order

	cells []cellEntry // spatial index, sorted by cell id
	stats LoadStats
}

// LoadStats describes what a load read and discarded.
type LoadStats struct {
	Source           string
	Lines            int // lines read, header included
	Records          int // records retained
	Keys             int // distinct primary keys retained
	Comments         int // blank and comment lines
	SkippedValidity  int // records outside their validity window
	SkippedDuplicate int // records dropped because their key was already indexed
	SkippedEmptyKey  int
	Duration         time.Duration
}

// maxLineSize bounds a single row; alternate-name sections can be long.
const maxLineSize = 1 << 20

// New builds a Base. The dataset is read from, in order of precedence, the
// WithReader stream, the WithFile path, the OPTD_POR_FILE environment
// variable, or the embedded copy.
//
// Example:
//
//	b, err := neobase.New(neobase.WithDate(time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)))
func New(opts ...Option) (*Base, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	r, name, closeFn, err := openSource(cfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	b, err := load(r, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	b.stats.Source = name

	cfg.Logger.Debug("neobase: loaded",
		"source", name,
		"entries", len(b.entries),
		"keys", b.stats.Keys,
		"skipped_validity", b.stats.SkippedValidity,
		"skipped_duplicate", b.stats.SkippedDuplicate,
		"duration", b.stats.Duration,
	)
	return b, nil
}

// Load builds a Base from r. It is New with WithReader(r).
func Load(r io.Reader, opts ...Option) (*Base, error) {
	return New(slices.Concat(opts, []Option{WithReader(r)})...)
}

func load(r io.Reader, cfg *Config) (*Base, error) {
	start := time.Now()

	p, err := NewParser(cfg.Schema)
	if err != nil {
		return nil, err
	}

	b := &Base{
		schema:     p.Schema(),
		date:       cfg.Date,
		duplicates: cfg.Duplicates,
		index:      make(map[string]int),
		groups:     make(map[string][]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 && cfg.Header {
			continue
		}

		rec, ok, err := p.ParseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		if !ok {
			if isBlankOrComment(line) {
				b.stats.Comments++
			} else {
				b.stats.SkippedEmptyKey++
			}
			continue
		}

		if !rec.ValidAt(b.date) {
			b.stats.SkippedValidity++
			continue
		}
		if _, seen := b.groups[rec.Key]; seen && !b.duplicates {
			b.stats.SkippedDuplicate++
			continue
		}
		b.insert(rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading line %d: %w", lineNo+1, err)
	}

	b.buildCellIndex()

	b.stats.Lines = lineNo
	b.stats.Records = len(b.records)
	b.stats.Keys = len(b.groups)
	b.stats.Duration = time.Since(start)
	return b, nil
}

// insert appends rec to its key's group. The n-th extra member of a group is
// addressable as KEY@n.
func (b *Base) insert(rec Record) {
	pos := len(b.records)
	b.records = append(b.records, rec)

	group := b.groups[rec.Key]
	entry := rec.Key
	if len(group) > 0 {
		entry = fmt.Sprintf("%s@%d", rec.Key, len(group))
	}
	b.groups[rec.Key] = append(group, pos)
	b.entries = append(b.entries, entry)
	b.index[entry] = pos
}

func isBlankOrComment(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	return line == "" || strings.HasPrefix(line, commentMarker)
}

// Stats returns counters collected while loading.
func (b *Base) Stats() LoadStats { return b.stats }

// Date returns the reference date the Base was loaded with.
func (b *Base) Date() time.Time { return b.date }

// KeepsDuplicates reports whether records sharing a key were all kept.
func (b *Base) KeepsDuplicates() bool { return b.duplicates }

// Schema returns a copy of the schema the Base was loaded with.
func (b *Base) Schema() Schema { return b.schema.clone() }

// Singleton pattern for the default Base.
var (
	defaultBase     *Base
	defaultBaseOnce sync.Once
	defaultBaseErr  error
)

// Default returns a shared Base built with New(), initializing it on first call.
func Default() (*Base, error) {
	defaultBaseOnce.Do(func() {
		defaultBase, defaultBaseErr = New()
	})
	return defaultBase, defaultBaseErr
}
