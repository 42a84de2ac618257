package cmd

import (
	"fmt"
	"os"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/config"
	"github.com/dukerupert/certadmin/internal/transport"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	Version = "dev"
	store   config.Store
	logger  = zap.NewNop()

	cfgPath     string
	profileName string
	verbose     bool
)

// Stored admin passwords live under this credential service, keyed by
// profile name.
const (
	credService = "admin"
	credKey     = "password"
)

var rootCmd = &cobra.Command{
	Use:   "certadmin",
	Short: "Configuration console for certificate server subsystems",
	Long: `Certadmin reads and modifies the configuration of a certificate server's
CA, RA, KRA, log and OCSP subsystems over its administrative interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.Path(), "Config file")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Server profile to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and state changes")
	rootCmd.Version = Version

	cobra.OnInitialize(loadEnv, initStore)
}

// loadEnv picks up a .env file in the working directory, if any.
func loadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}
}

// initStore opens the database named by the config, so the CLI and serve
// always share one store.
func initStore() {
	path := config.DBPath()
	if cfg, err := config.Load(cfgPath); err == nil {
		path = cfg.DatabasePath()
	}
	s, err := config.NewSQLiteStore(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open database: %v\n", err)
		return
	}
	store = s
}

func initLogger() error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger = l
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// connect resolves the active profile and returns a client for it.
func connect() (*admin.Client, *transport.HTTPConn, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	p, err := cfg.ResolveProfile(profileName)
	if err != nil {
		return nil, nil, err
	}
	timeout, err := p.TimeoutDuration()
	if err != nil {
		return nil, nil, err
	}
	pass, err := adminPassword(p)
	if err != nil {
		return nil, nil, err
	}

	conn, err := transport.NewHTTPConn(p.URL, transport.Options{
		User:     p.User,
		Password: pass,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("using profile", zap.String("profile", p.Name), zap.String("url", p.URL))
	return admin.NewClient(conn, logger), conn, nil
}

// adminPassword takes the password from CERTADMIN_PASSWORD, then the
// credential store, then prompts.
func adminPassword(p *config.Profile) (string, error) {
	if pass := os.Getenv("CERTADMIN_PASSWORD"); pass != "" {
		return pass, nil
	}
	if store != nil {
		if pass, err := store.GetCredential(credService, p.Name, credKey); err == nil {
			return pass, nil
		}
	}
	return promptPassword(fmt.Sprintf("Password for %s@%s: ", p.User, p.Name))
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pass), nil
}

func requireStore() error {
	if store == nil {
		return fmt.Errorf("credential database is not available")
	}
	return nil
}
