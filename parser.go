package neobase

import (
	"slices"
	"strings"
	"time"
)

const (
	fieldDelimiter = "^"
	commentMarker  = "#"
	dateLayout     = "2006-01-02"
)

// Record is one parsed row. Values follow the order of the schema fields.
// Records are never modified once built; accessors hand out copies.
type Record struct {
	Key       string
	DateFrom  time.Time // zero when the window is open on the left
	DateUntil time.Time // zero when the window is open on the right
	Line      int       // 1-based position in the input stream

	fields []Field
	values []any
}

// Get returns the value of the named field.
func (r Record) Get(field string) (any, bool) {
	for i, f := range r.fields {
		if f.Name == field {
			return cloneValue(r.values[i]), true
		}
	}
	return nil, false
}

// Values returns all attributes keyed by field name.
func (r Record) Values() map[string]any {
	m := make(map[string]any, len(r.fields))
	for i, f := range r.fields {
		m[f.Name] = cloneValue(r.values[i])
	}
	return m
}

// ValidAt reports whether date falls inside the record's validity window.
// Bounds are inclusive and compared at day granularity.
func (r Record) ValidAt(date time.Time) bool {
	day := truncateDay(date)
	if !r.DateFrom.IsZero() && day.Before(r.DateFrom) {
		return false
	}
	if !r.DateUntil.IsZero() && day.After(r.DateUntil) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return slices.Clone(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	}
	return v
}

// Parser turns delimited lines into records according to a schema.
type Parser struct {
	schema Schema
	width  int
}

// NewParser returns a parser for schema. The schema is copied.
func NewParser(schema Schema) (*Parser, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	s := schema.clone()
	return &Parser{schema: s, width: s.width()}, nil
}

// Schema returns a copy of the parser's schema.
func (p *Parser) Schema() Schema { return p.schema.clone() }

// ParseLine parses one line. The boolean is false for lines that carry no
// record: blank lines, comments, and rows with an empty key.
func (p *Parser) ParseLine(line string, lineNo int) (Record, bool, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, commentMarker) {
		return Record{}, false, nil
	}

	row := strings.Split(line, fieldDelimiter)
	if len(row) < p.width {
		return Record{}, false, p.fieldError(row, lineNo)
	}

	key := row[p.schema.KeyColumn]
	if key == "" {
		return Record{}, false, nil
	}

	rec := Record{
		Key:    key,
		Line:   lineNo,
		fields: p.schema.Fields,
		values: make([]any, len(p.schema.Fields)),
	}

	var err error
	if rec.DateFrom, err = p.parseDate(row, p.schema.DateFromColumn, "date_from", lineNo); err != nil {
		return Record{}, false, err
	}
	if rec.DateUntil, err = p.parseDate(row, p.schema.DateUntilColumn, "date_until", lineNo); err != nil {
		return Record{}, false, err
	}

	for i, f := range p.schema.Fields {
		raw := row[f.Column]
		if f.Parse == nil {
			rec.values[i] = raw
			continue
		}
		v, err := f.Parse(raw)
		if err != nil {
			return Record{}, false, &ParseError{Line: lineNo, Field: f.Name, Value: raw, Err: err}
		}
		rec.values[i] = v
	}
	return rec, true, nil
}

// fieldError names the first column the short row is missing.
func (p *Parser) fieldError(row []string, lineNo int) error {
	e := &RecordFieldError{Line: lineNo, Width: len(row)}
	switch {
	case p.schema.KeyColumn >= len(row):
		e.Field, e.Column = "key", p.schema.KeyColumn
	case p.schema.DateFromColumn >= len(row):
		e.Field, e.Column = "date_from", p.schema.DateFromColumn
	case p.schema.DateUntilColumn >= len(row):
		e.Field, e.Column = "date_until", p.schema.DateUntilColumn
	default:
		for _, f := range p.schema.Fields {
			if f.Column >= len(row) {
				e.Field, e.Column = f.Name, f.Column
				break
			}
		}
	}
	return e
}

func (p *Parser) parseDate(row []string, col int, name string, lineNo int) (time.Time, error) {
	if col < 0 || row[col] == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, row[col])
	if err != nil {
		return time.Time{}, &ParseError{Line: lineNo, Field: name, Value: row[col], Err: err}
	}
	return t, nil
}
