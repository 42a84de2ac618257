// Package nvpair holds the ordered name-value sets exchanged with the admin
// server and their wire encoding.
package nvpair

import "iter"

// Pair is a single configuration entry.
type Pair struct {
	Name  string
	Value string
}

// Set is an insertion-ordered sequence of pairs. Names are not required to be
// unique; Get returns the first match and Set replaces it in place.
//
// A nil *Set reads as empty but is read-only: Add and Set panic on it. New
// and Names are the constructors for sets that will be written.
type Set struct {
	pairs []Pair
}

// New returns a set holding the given pairs in order.
func New(pairs ...Pair) *Set {
	s := &Set{pairs: make([]Pair, 0, len(pairs))}
	s.pairs = append(s.pairs, pairs...)
	return s
}

// Names returns a set of names with blank values, the shape of a read request.
func Names(names ...string) *Set {
	s := &Set{pairs: make([]Pair, 0, len(names))}
	for _, n := range names {
		s.pairs = append(s.pairs, Pair{Name: n})
	}
	return s
}

// Add appends a pair, even if the name is already present. s must not be nil.
func (s *Set) Add(name, value string) {
	s.pairs = append(s.pairs, Pair{Name: name, Value: value})
}

// Set replaces the value of the first pair named name, or appends a new pair.
// Later duplicates of name are dropped so the last write wins. s must not be
// nil.
func (s *Set) Set(name, value string) {
	idx := -1
	kept := s.pairs[:0]
	for _, p := range s.pairs {
		if p.Name == name {
			if idx >= 0 {
				continue
			}
			idx = len(kept)
			p.Value = value
		}
		kept = append(kept, p)
	}
	s.pairs = kept
	if idx < 0 {
		s.pairs = append(s.pairs, Pair{Name: name, Value: value})
	}
}

// Get returns the value of the first pair named name.
func (s *Set) Get(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, p := range s.pairs {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Value is Get without the presence flag.
func (s *Set) Value(name string) string {
	v, _ := s.Get(name)
	return v
}

func (s *Set) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Len returns the number of pairs, duplicates included.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.pairs)
}

// All iterates the pairs in insertion order.
func (s *Set) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if s == nil {
			return
		}
		for _, p := range s.pairs {
			if !yield(p.Name, p.Value) {
				return
			}
		}
	}
}

// Pairs returns a copy of the pairs in insertion order.
func (s *Set) Pairs() []Pair {
	if s == nil {
		return nil
	}
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// NameList returns the names in insertion order.
func (s *Set) NameList() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		out[i] = p.Name
	}
	return out
}

// Blank returns a copy of s with every value cleared.
func (s *Set) Blank() *Set {
	return Names(s.NameList()...)
}

func (s *Set) Clone() *Set {
	return New(s.Pairs()...)
}

// Equal reports whether both sets hold the same pairs in the same order.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.pairs[i] != o.pairs[i] {
			return false
		}
	}
	return true
}
