package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/forms"
	"github.com/spf13/cobra"
)

var logScopes = []admin.Scope{admin.ScopeTransactionsLog, admin.ScopeSystemLog, admin.ScopeErrorLog}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log instance settings (transactions, system, error)",
}

var logShowCmd = &cobra.Command{
	Use:   "show [instance]",
	Short: "Show the settings of a log instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogShow,
}

var logSetCmd = &cobra.Command{
	Use:   "set [instance]",
	Short: "Change the settings of a log instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogSet,
}

var logFlags = []flagField{
	{"level", admin.ParamLogLevel},
	{"buffer-size", admin.ParamLogBufferSize},
	{"max-file-size", admin.ParamLogMaxFileSize},
}

func init() {
	logSetCmd.Flags().String("enable", "", "Enable the log (true or false)")
	logSetCmd.Flags().String("level", "", "Log level")
	logSetCmd.Flags().String("buffer-size", "", "Buffer size in KB")
	logSetCmd.Flags().String("max-file-size", "", "Maximum file size in KB")
	logSetCmd.Flags().String("rollover", "", "Rollover interval in seconds, or hourly, daily, weekly, monthly, yearly")

	logCmd.AddCommand(logShowCmd)
	logCmd.AddCommand(logSetCmd)
	rootCmd.AddCommand(logCmd)
}

func logForm(instance string) (*forms.LogSettings, error) {
	scope := admin.Scope(instance)
	if !slices.Contains(logScopes, scope) {
		return nil, fmt.Errorf("unknown log instance %q (want transactions, system or error)", instance)
	}
	client, _, err := connect()
	if err != nil {
		return nil, err
	}
	return forms.NewLogSettings(client, scope), nil
}

func runLogShow(cmd *cobra.Command, args []string) error {
	form, err := logForm(args[0])
	if err != nil {
		return err
	}
	if _, err := loadForm(context.Background(), form); err != nil {
		return err
	}
	printForm(form)
	return nil
}

func runLogSet(cmd *cobra.Command, args []string) error {
	form, err := logForm(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	c, err := loadForm(ctx, form)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("enable") {
		v, _ := cmd.Flags().GetString("enable")
		on, err := forms.ParseBool(admin.ParamLogEnabled, v)
		if err != nil {
			return err
		}
		form.SetEnabled(on)
	}
	if cmd.Flags().Changed("rollover") {
		v, _ := cmd.Flags().GetString("rollover")
		form.SetRolloverInterval(v)
	}
	if err := applyFlags(cmd, form, logFlags); err != nil {
		return err
	}
	return saveForm(ctx, c)
}
