package neobase

import (
	"iter"
	"reflect"
	"strings"
)

// resolve maps a query key to its entry key. Keys are matched as given, then
// upper-cased.
func (b *Base) resolve(key string) (string, bool) {
	if _, ok := b.index[key]; ok {
		return key, true
	}
	up := strings.ToUpper(key)
	if _, ok := b.index[up]; ok {
		return up, true
	}
	return "", false
}

// members returns the record positions a query key designates: the whole
// group for a primary key, a single record for a KEY@n alias.
func (b *Base) members(key string) ([]int, string, bool) {
	entry, ok := b.resolve(key)
	if !ok {
		return nil, "", false
	}
	if group, ok := b.groups[entry]; ok {
		return group, entry, true
	}
	return []int{b.index[entry]}, entry, true
}

// Contains reports whether key (or a KEY@n duplicate alias) is indexed.
func (b *Base) Contains(key string) bool {
	_, ok := b.resolve(key)
	return ok
}

// Len returns the number of entries: every retained record when duplicates
// are kept, the number of distinct keys otherwise.
func (b *Base) Len() int { return len(b.entries) }

// Get returns the value of field for key. When several records share key the
// result is a []any holding each member's value in group order; a KEY@n alias
// always yields a single value.
func (b *Base) Get(key, field string) (any, error) {
	group, entry, ok := b.members(key)
	if !ok {
		return nil, &KeyNotFoundError{Key: key}
	}
	idx := b.schema.FieldIndex(field)
	if idx < 0 {
		return nil, &FieldNotFoundError{Key: entry, Field: field, Fields: b.schema.FieldNames()}
	}
	if len(group) == 1 {
		return cloneValue(b.records[group[0]].values[idx]), nil
	}
	out := make([]any, len(group))
	for i, pos := range group {
		out[i] = cloneValue(b.records[pos].values[idx])
	}
	return out, nil
}

// GetFirst returns the value of field for the first-ranked record under key.
func (b *Base) GetFirst(key, field string) (any, error) {
	rec, err := b.Record(key)
	if err != nil {
		return nil, err
	}
	v, ok := rec.Get(field)
	if !ok {
		return nil, &FieldNotFoundError{Key: rec.Key, Field: field, Fields: b.schema.FieldNames()}
	}
	return v, nil
}

// Record returns the first-ranked record under key, or the aliased record.
func (b *Base) Record(key string) (Record, error) {
	group, _, ok := b.members(key)
	if !ok {
		return Record{}, &KeyNotFoundError{Key: key}
	}
	return b.records[group[0]], nil
}

// Group returns every record sharing key's primary key, in group order.
func (b *Base) Group(key string) ([]Record, error) {
	entry, ok := b.resolve(key)
	if !ok {
		return nil, &KeyNotFoundError{Key: key}
	}
	group := b.groups[b.records[b.index[entry]].Key]
	out := make([]Record, len(group))
	for i, pos := range group {
		out[i] = b.records[pos]
	}
	return out, nil
}

// Duplicates returns the other entries of key's group, in group order.
func (b *Base) Duplicates(key string) []string {
	entry, ok := b.resolve(key)
	if !ok {
		return nil
	}
	var out []string
	for _, pos := range b.groups[b.records[b.index[entry]].Key] {
		if b.entries[pos] != entry {
			out = append(out, b.entries[pos])
		}
	}
	return out
}

// Keys yields every entry key in store order.
func (b *Base) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, k := range b.entries {
			if !yield(k) {
				return
			}
		}
	}
}

// All yields every entry key with its record, in store order.
func (b *Base) All() iter.Seq2[string, Record] {
	return func(yield func(string, Record) bool) {
		for i, k := range b.entries {
			if !yield(k, b.records[i]) {
				return
			}
		}
	}
}

// Condition matches entries whose Field equals Value.
type Condition struct {
	Field string
	Value any
}

// SearchOption configures FindWith and the spatial searches.
type SearchOption func(*searchConfig)

type searchConfig struct {
	from    []string
	reverse bool
}

// From restricts a search to the given keys. From() with no keys matches
// nothing.
func From(keys ...string) SearchOption {
	return func(c *searchConfig) {
		c.from = append([]string{}, keys...)
	}
}

// Reverse makes FindWith select entries whose values differ.
func Reverse() SearchOption {
	return func(c *searchConfig) {
		c.reverse = true
	}
}

func newSearchConfig(opts []SearchOption) searchConfig {
	var c searchConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// FindWith yields entry keys whose record satisfies every condition.
// Unknown keys passed through From are ignored; a condition on a field the
// schema does not define is a *FieldNotFoundError.
//
//	paris, err := b.FindWith([]neobase.Condition{{"city_code_list", []string{"PAR"}}})
func (b *Base) FindWith(conds []Condition, opts ...SearchOption) (iter.Seq[string], error) {
	idx := make([]int, len(conds))
	for i, c := range conds {
		if idx[i] = b.schema.FieldIndex(c.Field); idx[i] < 0 {
			return nil, &FieldNotFoundError{Field: c.Field, Fields: b.schema.FieldNames()}
		}
	}
	cfg := newSearchConfig(opts)
	return func(yield func(string) bool) {
		for _, pos := range b.candidates(cfg.from) {
			if b.matches(pos, conds, idx, cfg.reverse) && !yield(b.entries[pos]) {
				return
			}
		}
	}, nil
}

func (b *Base) matches(pos int, conds []Condition, idx []int, reverse bool) bool {
	rec := b.records[pos]
	for i, c := range conds {
		if reflect.DeepEqual(rec.values[idx[i]], c.Value) == reverse {
			return false
		}
	}
	return true
}

// candidates returns record positions for keys, or every position when keys
// is nil.
func (b *Base) candidates(keys []string) []int {
	if keys == nil {
		out := make([]int, len(b.records))
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, len(keys))
	for _, k := range keys {
		if entry, ok := b.resolve(k); ok {
			out = append(out, b.index[entry])
		}
	}
	return out
}
