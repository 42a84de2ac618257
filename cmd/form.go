package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dukerupert/certadmin/internal/forms"
	"github.com/spf13/cobra"
)

// fieldForm is what the show/set commands need from a form.
type fieldForm interface {
	forms.Form
	Fields() []string
	Get(name string) string
	Set(name, value string) error
	Provided(name string) bool
}

// flagField binds a command flag to a form field.
type flagField struct {
	flag  string
	field string
}

func loadForm(ctx context.Context, form fieldForm) (*forms.Controller, error) {
	c := forms.NewController(form, logger)
	if err := c.Dispatch(ctx, forms.ActionRefresh); err != nil {
		return nil, err
	}
	return c, nil
}

func printForm(form fieldForm) {
	fmt.Printf("%s\n\n", form.Name())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FIELD\tVALUE")
	fmt.Fprintln(w, "─────\t─────")
	for _, name := range form.Fields() {
		value := form.Get(name)
		if !form.Provided(name) {
			value = "(not supported by server)"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, value)
	}
	w.Flush()
}

// applyFlags copies every flag the user set onto its field.
func applyFlags(cmd *cobra.Command, form fieldForm, bindings []flagField) error {
	for _, b := range bindings {
		if !cmd.Flags().Changed(b.flag) {
			continue
		}
		v, _ := cmd.Flags().GetString(b.flag)
		if err := form.Set(b.field, v); err != nil {
			return err
		}
	}
	return nil
}

// saveForm dispatches a save and reports what happened.
func saveForm(ctx context.Context, c *forms.Controller) error {
	form := c.Form()
	if !form.Dirty() {
		fmt.Println("Nothing to change.")
		return nil
	}
	if err := c.Dispatch(ctx, forms.ActionSave); err != nil {
		var ve *forms.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("invalid input, nothing was sent: %w", err)
		}
		return fmt.Errorf("saving %s: %w", form.Name(), err)
	}
	fmt.Printf("Saved %s\n", form.Name())
	return nil
}
