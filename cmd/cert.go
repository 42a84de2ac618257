package cmd

import (
	"context"
	"fmt"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/forms"
	"github.com/spf13/cobra"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Certificate mapper and publisher settings",
	Long: fmt.Sprintf("Panels: %q, %q, %q.",
		forms.PanelCACACert, forms.PanelCAUserCert, forms.PanelRAUserCert),
}

var certShowCmd = &cobra.Command{
	Use:   "show [panel]",
	Short: "Show the mapper and publisher of a panel",
	Args:  cobra.ExactArgs(1),
	RunE:  runCertShow,
}

var certSetCmd = &cobra.Command{
	Use:   "set [panel]",
	Short: "Change the mapper and publisher of a panel",
	Args:  cobra.ExactArgs(1),
	RunE:  runCertSet,
}

var certFlags = []flagField{
	{"mapper", admin.ParamMapperImplName},
	{"publisher", admin.ParamPublisherImplName},
}

func init() {
	certSetCmd.Flags().String("mapper", "", "Mapper implementation name")
	certSetCmd.Flags().String("publisher", "", "Publisher implementation name (empty to disable)")

	certCmd.AddCommand(certShowCmd)
	certCmd.AddCommand(certSetCmd)
	rootCmd.AddCommand(certCmd)
}

func certForm(panel string) (*forms.CertSettings, error) {
	client, _, err := connect()
	if err != nil {
		return nil, err
	}
	return forms.NewCertSettings(client, panel, logger), nil
}

func runCertShow(cmd *cobra.Command, args []string) error {
	form, err := certForm(args[0])
	if err != nil {
		return err
	}
	if _, err := loadForm(context.Background(), form); err != nil {
		return err
	}
	fmt.Printf("Destination: %s\nScope:       %s\n\n", form.Destination(), form.Scope())
	printForm(form)
	return nil
}

func runCertSet(cmd *cobra.Command, args []string) error {
	form, err := certForm(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	c, err := loadForm(ctx, form)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, form, certFlags); err != nil {
		return err
	}
	return saveForm(ctx, c)
}
