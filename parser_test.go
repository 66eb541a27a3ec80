package neobase

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	p, err := NewParser(DefaultSchema())
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	rec, ok, err := p.ParseLine(rowORY.line(), 2)
	if err != nil || !ok {
		t.Fatalf("ParseLine(ORY) = ok %v, err %v; want ok", ok, err)
	}
	if rec.Key != "ORY" {
		t.Errorf("Key = %q, want ORY", rec.Key)
	}
	if rec.Line != 2 {
		t.Errorf("Line = %d, want 2", rec.Line)
	}

	want := map[string]any{
		"iata_code":      "ORY",
		"name":           "Paris Orly Airport",
		"lat":            "48.725278",
		"lng":            "2.359444",
		"page_rank":      0.3876,
		"country_code":   "FR",
		"country_name":   "",
		"continent_name": "",
		"timezone":       "",
		"city_code_list": []string{"PAR"},
		"city_name_list": []string{"Paris"},
		"location_type":  []string{"A"},
		"currency":       "",
	}
	if got := rec.Values(); !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}

func TestParseLine_Skipped(t *testing.T) {
	p, _ := NewParser(DefaultSchema())

	tests := []struct {
		name string
		line string
	}{
		{name: "empty line", line: ""},
		{name: "carriage return only", line: "\r"},
		{name: "comment", line: "#iata_code^icao_code"},
		{name: "comment looking like data", line: "#" + rowORY.line()},
		{name: "empty key", line: rowORY.with(colIATACode, "").line()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := p.ParseLine(tt.line, 1)
			if err != nil {
				t.Fatalf("ParseLine() error = %v, want nil", err)
			}
			if ok {
				t.Error("ParseLine() ok = true, want skipped")
			}
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	p, _ := NewParser(DefaultSchema())
	short := strings.Join(strings.Split(rowORY.line(), "^")[:20], "^")

	tests := []struct {
		name      string
		line      string
		wantErr   error
		wantField string
	}{
		{
			name:      "short row",
			line:      short,
			wantErr:   ErrRecordField,
			wantField: "timezone",
		},
		{
			name:      "single column",
			line:      "ORY",
			wantErr:   ErrRecordField,
			wantField: "date_from",
		},
		{
			name:      "bad page rank",
			line:      rowORY.with(colPageRank, "high").line(),
			wantErr:   ErrParse,
			wantField: "page_rank",
		},
		{
			name:      "bad date_from",
			line:      rowORY.with(colDateFrom, "2012/06/28").line(),
			wantErr:   ErrParse,
			wantField: "date_from",
		},
		{
			name:      "bad date_until",
			line:      rowORY.with(colDateUntil, "yesterday").line(),
			wantErr:   ErrParse,
			wantField: "date_until",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.ParseLine(tt.line, 7)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseLine() error = %v, want %v", err, tt.wantErr)
			}
			var field string
			var line int
			var rfe *RecordFieldError
			var pe *ParseError
			switch {
			case errors.As(err, &rfe):
				field, line = rfe.Field, rfe.Line
			case errors.As(err, &pe):
				field, line = pe.Field, pe.Line
			}
			if field != tt.wantField {
				t.Errorf("error field = %q, want %q", field, tt.wantField)
			}
			if line != 7 {
				t.Errorf("error line = %d, want 7", line)
			}
		})
	}
}

func TestParseLine_Dates(t *testing.T) {
	p, _ := NewParser(DefaultSchema())
	rec, ok, err := p.ParseLine(rowORY.with(colDateFrom, "2012-06-28").with(colDateUntil, "2030-01-01").line(), 1)
	if err != nil || !ok {
		t.Fatalf("ParseLine() = ok %v, err %v", ok, err)
	}

	tests := []struct {
		date string
		want bool
	}{
		{"2012-06-27", false},
		{"2012-06-28", true},
		{"2020-01-01", true},
		{"2030-01-01", true},
		{"2030-01-02", false},
	}
	for _, tt := range tests {
		if got := rec.ValidAt(day(tt.date)); got != tt.want {
			t.Errorf("ValidAt(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestParseLine_DatesDisabled(t *testing.T) {
	s := DefaultSchema()
	s.DateFromColumn, s.DateUntilColumn = -1, -1
	p, err := NewParser(s)
	if err != nil {
		t.Fatal(err)
	}
	// Garbage in the usual date columns is not looked at.
	rec, ok, err := p.ParseLine(rowORY.with(colDateUntil, "not a date").line(), 1)
	if err != nil || !ok {
		t.Fatalf("ParseLine() = ok %v, err %v", ok, err)
	}
	if !rec.ValidAt(day("1900-01-01")) {
		t.Error("record without window should always be valid")
	}
}

func TestRecord_ValuesAreCopies(t *testing.T) {
	p, _ := NewParser(DefaultSchema())
	rec, _, _ := p.ParseLine(rowORY.line(), 1)

	v, _ := rec.Get("city_code_list")
	v.([]string)[0] = "XXX"

	again, _ := rec.Get("city_code_list")
	if again.([]string)[0] != "PAR" {
		t.Errorf("record was mutated through Get: %v", again)
	}
}
