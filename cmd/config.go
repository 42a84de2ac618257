package cmd

import (
	"fmt"
	"os"

	"github.com/dukerupert/certadmin/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage certadmin configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Add or update a server profile",
	RunE:  runConfigInit,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print current config",
	RunE:  runConfigView,
}

func init() {
	configInitCmd.Flags().String("name", "default", "Profile name")
	configInitCmd.Flags().String("url", "", "Admin interface URL (e.g. https://ca.example.com:8443/admin)")
	configInitCmd.Flags().String("user", "admin", "Administrator user id")
	configInitCmd.Flags().String("timeout", "", "Request timeout (e.g. 30s)")
	configInitCmd.Flags().Bool("default", false, "Make this the default profile")
	configInitCmd.MarkFlagRequired("url")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configViewCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	url, _ := cmd.Flags().GetString("url")
	user, _ := cmd.Flags().GetString("user")
	timeout, _ := cmd.Flags().GetString("timeout")
	makeDefault, _ := cmd.Flags().GetBool("default")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p := config.Profile{Name: name, URL: url, User: user, Timeout: timeout}
	if _, err := p.TimeoutDuration(); err != nil {
		return err
	}
	cfg.UpsertProfile(p)
	if makeDefault || len(cfg.Profiles) == 1 {
		cfg.DefaultProfile = name
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	fmt.Printf("Config written to %s\n", cfgPath)
	fmt.Printf("  Profiles: %d\n", len(cfg.Profiles))
	fmt.Printf("  Default:  %s\n", cfg.DefaultProfile)
	return nil
}

func runConfigView(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no config found, run 'certadmin config init' first")
		}
		return err
	}

	// Re-marshal for consistent formatting
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		fmt.Print(string(data))
		return nil
	}
	out, _ := yaml.Marshal(raw)
	fmt.Print(string(out))
	return nil
}
