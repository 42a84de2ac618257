package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage stored admin passwords",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the admin password for a profile",
	RunE:  runCredentialSet,
}

var credentialDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Forget the admin password for a profile",
	RunE:  runCredentialDelete,
}

var credentialListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles with a stored password",
	RunE:  runCredentialList,
}

func init() {
	credentialCmd.AddCommand(credentialSetCmd)
	credentialCmd.AddCommand(credentialDeleteCmd)
	credentialCmd.AddCommand(credentialListCmd)
	rootCmd.AddCommand(credentialCmd)
}

func activeProfileName() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	p, err := cfg.ResolveProfile(profileName)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func runCredentialSet(cmd *cobra.Command, args []string) error {
	if err := requireStore(); err != nil {
		return err
	}
	name, err := activeProfileName()
	if err != nil {
		return err
	}

	pass, err := promptPassword(fmt.Sprintf("Password for profile %s: ", name))
	if err != nil {
		return err
	}
	if pass == "" {
		return fmt.Errorf("password must not be empty")
	}
	if err := store.SetCredential(credService, name, credKey, pass); err != nil {
		return err
	}
	fmt.Printf("Password stored for profile %s\n", name)
	return nil
}

func runCredentialDelete(cmd *cobra.Command, args []string) error {
	if err := requireStore(); err != nil {
		return err
	}
	name, err := activeProfileName()
	if err != nil {
		return err
	}
	if err := store.DeleteCredential(credService, name); err != nil {
		return err
	}
	fmt.Printf("Password removed for profile %s\n", name)
	return nil
}

func runCredentialList(cmd *cobra.Command, args []string) error {
	if err := requireStore(); err != nil {
		return err
	}
	creds, err := store.ListCredentials(credService)
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		fmt.Println("No stored passwords.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PROFILE\tKEY")
	fmt.Fprintln(w, "───────\t───")
	for _, c := range creds {
		fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Key)
	}
	return w.Flush()
}
