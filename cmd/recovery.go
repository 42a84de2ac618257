package cmd

import (
	"context"
	"fmt"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/forms"
	"github.com/spf13/cobra"
)

var recoveryCmd = &cobra.Command{
	Use:   "recovery",
	Short: "Key recovery M-of-N scheme and agent credential",
}

var recoveryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the recovery scheme",
	RunE:  runRecoveryShow,
}

var recoverySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the recovery scheme",
	RunE:  runRecoverySet,
}

var recoveryAgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Change the recovery agent credential",
	RunE:  runRecoveryAgent,
}

var recoveryFlags = []flagField{
	{"required-agents", admin.ParamRequiredAgents},
	{"m", admin.ParamRecoveryM},
	{"n", admin.ParamRecoveryN},
}

func init() {
	recoverySetCmd.Flags().String("required-agents", "", "Number of agents required to recover a key")
	recoverySetCmd.Flags().String("m", "", "M of the M-of-N scheme")
	recoverySetCmd.Flags().String("n", "", "N of the M-of-N scheme")

	recoveryCmd.AddCommand(recoveryShowCmd)
	recoveryCmd.AddCommand(recoverySetCmd)
	recoveryCmd.AddCommand(recoveryAgentCmd)
	rootCmd.AddCommand(recoveryCmd)
}

func recoveryForm() (*forms.RecoveryScheme, error) {
	client, _, err := connect()
	if err != nil {
		return nil, err
	}
	return forms.NewRecoveryScheme(client), nil
}

func runRecoveryShow(cmd *cobra.Command, args []string) error {
	form, err := recoveryForm()
	if err != nil {
		return err
	}
	if _, err := loadForm(context.Background(), form); err != nil {
		return err
	}
	printForm(form)
	return nil
}

func runRecoverySet(cmd *cobra.Command, args []string) error {
	form, err := recoveryForm()
	if err != nil {
		return err
	}
	ctx := context.Background()
	c, err := loadForm(ctx, form)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, form, recoveryFlags); err != nil {
		return err
	}
	return saveForm(ctx, c)
}

func runRecoveryAgent(cmd *cobra.Command, args []string) error {
	form, err := recoveryForm()
	if err != nil {
		return err
	}

	oldCred, err := promptPassword("Current agent credential (empty if none): ")
	if err != nil {
		return err
	}
	newCred, err := promptPassword("New agent credential: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm new agent credential: ")
	if err != nil {
		return err
	}
	if newCred != confirm {
		return fmt.Errorf("credentials do not match")
	}

	if err := form.ChangeAgentCredential(context.Background(), oldCred, newCred); err != nil {
		return err
	}
	fmt.Println("Recovery agent credential changed")
	return nil
}
