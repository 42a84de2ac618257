package forms

import (
	"github.com/dukerupert/certadmin/internal/nvpair"
)

// fields is the in-memory edit state of a form: the values the operator sees,
// which of them the server provided, and whether there are unsaved edits.
type fields struct {
	order    []string
	values   map[string]string
	provided map[string]bool
	touched  map[string]bool
	dirty    bool
}

func newFields(names ...string) *fields {
	f := &fields{
		values:   make(map[string]string),
		provided: make(map[string]bool),
		touched:  make(map[string]bool),
	}
	for _, n := range names {
		f.add(n)
	}
	return f
}

func (f *fields) add(name string) {
	if _, ok := f.values[name]; ok {
		return
	}
	f.order = append(f.order, name)
	f.values[name] = ""
}

func (f *fields) has(name string) bool {
	_, ok := f.values[name]
	return ok
}

func (f *fields) get(name string) string {
	return f.values[name]
}

// active reports whether name takes part in a save: the server provided it
// or the operator edited it. Inactive fields are never validated or sent.
func (f *fields) active(name string) bool {
	return f.provided[name] || f.touched[name]
}

func (f *fields) set(name, value string) {
	if f.values[name] == value && (f.provided[name] || f.touched[name]) {
		return
	}
	f.values[name] = value
	f.touched[name] = true
	f.dirty = true
}

// load replaces every value with the server's. Names the server did not
// return become blank and unprovided.
func (f *fields) load(resp *nvpair.Set) {
	for _, n := range f.order {
		v, ok := resp.Get(n)
		f.values[n] = v
		f.provided[n] = ok
	}
	f.touched = make(map[string]bool)
	f.dirty = false
}

// commit records a successful save.
func (f *fields) commit() {
	for n := range f.touched {
		f.provided[n] = true
	}
	f.touched = make(map[string]bool)
	f.dirty = false
}

// names is the read request for this form.
func (f *fields) names() *nvpair.Set {
	return nvpair.Names(f.order...)
}

// updates is the modify request: every field the server knows about or the
// operator has edited, in form order.
func (f *fields) updates() *nvpair.Set {
	out := nvpair.New()
	for _, n := range f.order {
		if f.active(n) {
			out.Add(n, f.values[n])
		}
	}
	return out
}

func (f *fields) unprovided() []string {
	var out []string
	for _, n := range f.order {
		if !f.provided[n] {
			out = append(out, n)
		}
	}
	return out
}
