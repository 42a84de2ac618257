// Package forms holds the headless configuration forms of the admin console.
// A form loads a scope from the server, lets the caller edit it, validates
// the edits locally and persists them with a single Modify.
package forms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/certadmin/internal/admin"
	"go.uber.org/zap"
)

// Refreshable forms reload their values from the server.
type Refreshable interface {
	Refresh(ctx context.Context) error
}

// Validatable forms check their values before anything is sent.
type Validatable interface {
	Validate() error
}

// Persistable forms write their values to the server.
type Persistable interface {
	Save(ctx context.Context) error
	Dirty() bool
}

// Form is what a Controller drives.
type Form interface {
	Name() string
	Refreshable
	Validatable
	Persistable
}

// ErrUnsavedChanges is returned when a refresh would discard edits.
var ErrUnsavedChanges = errors.New("form has unsaved changes")

// check validates one aspect of a form's fields.
type check func(f *fields) error

// scopeForm binds a set of fields to one destination/scope/resource. The
// concrete forms embed it and add typed accessors and checks.
type scopeForm struct {
	name   string
	client *admin.Client
	dest   admin.Destination
	scope  admin.Scope
	rid    admin.RequestID
	fields *fields
	checks []check
}

func (f *scopeForm) Name() string { return f.name }

func (f *scopeForm) Destination() admin.Destination { return f.dest }

func (f *scopeForm) Scope() admin.Scope { return f.scope }

// Refresh loads the server's values, replacing any edits.
func (f *scopeForm) Refresh(ctx context.Context) error {
	resp, err := f.client.Read(ctx, f.dest, f.scope, f.rid, f.fields.names())
	if err != nil {
		return err
	}
	f.fields.load(resp)
	return nil
}

// Validate runs every check and returns the first failure. Fields the server
// did not provide and the operator has not edited are skipped.
func (f *scopeForm) Validate() error {
	for _, c := range f.checks {
		if err := c(f.fields); err != nil {
			return err
		}
	}
	return nil
}

// Save validates, then submits the form in one Modify. On any failure the
// edited values and the dirty flag are left as they were.
func (f *scopeForm) Save(ctx context.Context) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := f.client.Modify(ctx, f.dest, f.scope, f.rid, f.fields.updates()); err != nil {
		return err
	}
	f.fields.commit()
	return nil
}

func (f *scopeForm) Dirty() bool { return f.fields.dirty }

// Get returns the current value of a field.
func (f *scopeForm) Get(name string) string { return f.fields.get(name) }

// Set edits a field. Unknown fields are rejected.
func (f *scopeForm) Set(name, value string) error {
	if !f.fields.has(name) {
		return fmt.Errorf("%s: unknown field %q", f.name, name)
	}
	f.fields.set(name, value)
	return nil
}

// Provided reports whether the server returned a value for name on the last
// refresh (or it has been saved since).
func (f *scopeForm) Provided(name string) bool { return f.fields.provided[name] }

// Unsupported lists fields the server did not provide.
func (f *scopeForm) Unsupported() []string { return f.fields.unprovided() }

// Fields returns the field names in display order.
func (f *scopeForm) Fields() []string {
	out := make([]string, len(f.fields.order))
	copy(out, f.fields.order)
	return out
}

// Action is a user command on a form.
type Action int

const (
	ActionRefresh Action = iota + 1
	ActionSave
	ActionRevert
)

var actionNames = map[Action]string{
	ActionRefresh: "refresh",
	ActionSave:    "save",
	ActionRevert:  "revert",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func ParseAction(s string) (Action, error) {
	for a, n := range actionNames {
		if strings.EqualFold(n, s) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action: %s", s)
}

// Controller dispatches actions to a form through a lookup table.
type Controller struct {
	form    Form
	log     *zap.Logger
	actions map[Action]func(context.Context) error
}

func NewController(form Form, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{form: form, log: logger.Named("forms").With(zap.String("form", form.Name()))}
	c.actions = map[Action]func(context.Context) error{
		ActionRefresh: c.refresh,
		ActionSave:    c.save,
		ActionRevert:  form.Refresh,
	}
	return c
}

func (c *Controller) Form() Form { return c.form }

// Dispatch runs the action. Errors are returned unchanged so the caller can
// tell validation, protocol and transport failures apart.
func (c *Controller) Dispatch(ctx context.Context, a Action) error {
	fn, ok := c.actions[a]
	if !ok {
		return fmt.Errorf("%s: unsupported action %s", c.form.Name(), a)
	}
	if err := fn(ctx); err != nil {
		c.log.Info("action failed", zap.Stringer("action", a), zap.Error(err))
		return err
	}
	c.log.Debug("action done", zap.Stringer("action", a))
	return nil
}

func (c *Controller) refresh(ctx context.Context) error {
	if c.form.Dirty() {
		return ErrUnsavedChanges
	}
	return c.form.Refresh(ctx)
}

func (c *Controller) save(ctx context.Context) error {
	if err := c.form.Validate(); err != nil {
		return err
	}
	if !c.form.Dirty() {
		return nil
	}
	return c.form.Save(ctx)
}
