package neobase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParseFunc converts the raw text of a column into a typed value.
// A nil ParseFunc keeps the raw string.
type ParseFunc func(raw string) (any, error)

// Field describes one extracted column.
type Field struct {
	Name   string
	Column int
	Parse  ParseFunc
}

// Schema describes which columns of a row become record attributes.
// DateFromColumn and DateUntilColumn locate the validity window; a negative
// value disables that bound.
type Schema struct {
	KeyColumn       int
	DateFromColumn  int
	DateUntilColumn int
	Fields          []Field
}

// Column layout of optd_por_public.csv.
const (
	colIATACode      = 0
	colGeonameID     = 4
	colName          = 6
	colLatitude      = 8
	colLongitude     = 9
	colPageRank      = 12
	colDateFrom      = 13
	colDateUntil     = 14
	colCountryCode   = 16
	colCountryName   = 18
	colContinentName = 19
	colTimezone      = 31
	colCityCodeList  = 36
	colCityNameList  = 37
	colLocationType  = 41
	colCurrency      = 46
)

// GeonameIDColumn and LocationTypeColumn are the secondary sort columns the
// refresh procedure orders the dataset by.
const (
	GeonameIDColumn    = colGeonameID
	LocationTypeColumn = colLocationType
)

// DefaultSchema returns the layout of the bundled dataset. The returned value
// is a fresh copy and may be modified freely.
func DefaultSchema() Schema {
	return Schema{
		KeyColumn:       colIATACode,
		DateFromColumn:  colDateFrom,
		DateUntilColumn: colDateUntil,
		Fields: []Field{
			{Name: "iata_code", Column: colIATACode},
			{Name: "name", Column: colName},
			{Name: "lat", Column: colLatitude},
			{Name: "lng", Column: colLongitude},
			{Name: "page_rank", Column: colPageRank, Parse: OptionalFloat},
			{Name: "country_code", Column: colCountryCode},
			{Name: "country_name", Column: colCountryName},
			{Name: "continent_name", Column: colContinentName},
			{Name: "timezone", Column: colTimezone},
			{Name: "city_code_list", Column: colCityCodeList, Parse: SplitOn(",")},
			{Name: "city_name_list", Column: colCityNameList, Parse: SplitOn("=")},
			{Name: "location_type", Column: colLocationType, Parse: Chars},
			{Name: "currency", Column: colCurrency},
		},
	}
}

// With returns a copy of s with extra fields appended.
func (s Schema) With(fields ...Field) Schema {
	out := s.clone()
	out.Fields = append(out.Fields, fields...)
	return out
}

func (s Schema) clone() Schema {
	out := s
	out.Fields = append([]Field(nil), s.Fields...)
	return out
}

// Validate reports whether s can be used to parse rows.
func (s Schema) Validate() error {
	if s.KeyColumn < 0 {
		return fmt.Errorf("%w: negative key column %d", ErrInvalidSchema, s.KeyColumn)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidSchema)
	}
	seen := make(map[string]bool, len(s.Fields))
	var errs []error
	for i, f := range s.Fields {
		switch {
		case f.Name == "":
			errs = append(errs, fmt.Errorf("%w: field %d has no name", ErrInvalidSchema, i))
		case seen[f.Name]:
			errs = append(errs, fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name))
		case f.Column < 0:
			errs = append(errs, fmt.Errorf("%w: field %q has negative column %d", ErrInvalidSchema, f.Name, f.Column))
		}
		seen[f.Name] = true
	}
	return errors.Join(errs...)
}

// FieldIndex returns the position of the named field, or -1.
func (s Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FieldNames returns field names in schema order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// width is the minimum number of columns a row needs.
func (s Schema) width() int {
	w := max(s.KeyColumn, s.DateFromColumn, s.DateUntilColumn)
	for _, f := range s.Fields {
		w = max(w, f.Column)
	}
	return w + 1
}

// OptionalFloat parses a float64; the empty string yields nil.
func OptionalFloat(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	return Float(raw)
}

// Float parses a required float64.
func Float(raw string) (any, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SplitOn returns a ParseFunc splitting a column on sep into a []string.
// The empty string yields a single empty element, like the upstream data.
func SplitOn(sep string) ParseFunc {
	return func(raw string) (any, error) {
		return strings.Split(raw, sep), nil
	}
}

// Chars splits a column into one-character strings ("CA" -> ["C" "A"]).
func Chars(raw string) (any, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, string(r))
	}
	return out, nil
}
