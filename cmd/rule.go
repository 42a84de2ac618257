package cmd

import (
	"context"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/forms"
	"github.com/spf13/cobra"
)

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Policy, mapper and publisher rule instances",
}

var ruleShowCmd = &cobra.Command{
	Use:   "show [destination] [scope] [instance] [param...]",
	Short: "Show a rule instance",
	Long:  "Reads the implementation name and the listed plugin parameters of one rule instance. Scope is policyRules, mapperRules or publisherRules.",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runRuleShow,
}

var ruleSetCmd = &cobra.Command{
	Use:   "set [destination] [scope] [instance] [param=value...]",
	Short: "Change a rule instance",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runRuleSet,
}

func init() {
	ruleSetCmd.Flags().String("impl", "", "Plugin implementation name")

	ruleCmd.AddCommand(ruleShowCmd)
	ruleCmd.AddCommand(ruleSetCmd)
	rootCmd.AddCommand(ruleCmd)
}

func ruleForm(args []string, params []string) (*forms.RuleInstance, error) {
	client, _, err := connect()
	if err != nil {
		return nil, err
	}
	return forms.NewRuleInstance(client, admin.Destination(args[0]), admin.Scope(args[1]), args[2], params...)
}

func runRuleShow(cmd *cobra.Command, args []string) error {
	form, err := ruleForm(args, args[3:])
	if err != nil {
		return err
	}
	if _, err := loadForm(context.Background(), form); err != nil {
		return err
	}
	printForm(form)
	return nil
}

func runRuleSet(cmd *cobra.Command, args []string) error {
	updates, err := parseAssignments(args[3:])
	if err != nil {
		return err
	}
	form, err := ruleForm(args, updates.NameList())
	if err != nil {
		return err
	}

	ctx := context.Background()
	c, err := loadForm(ctx, form)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, form, []flagField{{"impl", admin.ParamImplName}}); err != nil {
		return err
	}
	for name, value := range updates.All() {
		if err := form.Set(name, value); err != nil {
			return err
		}
	}
	return saveForm(ctx, c)
}
