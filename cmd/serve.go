package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/certadmin/internal/config"
	"github.com/dukerupert/certadmin/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a standalone admin server backed by SQLite",
	Long:  "Serves the administrative interface for development and testing. Settings and users are kept in the server database.",
	RunE:  runServe,
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users of the standalone admin server",
}

var userAddCmd = &cobra.Command{
	Use:   "add [uid]",
	Short: "Add or update a server user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address (default from config)")

	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
}

func newServer(cfg *config.Config) (*server.Server, error) {
	if err := requireStore(); err != nil {
		return nil, err
	}
	logger.Debug("using database", zap.String("path", cfg.DatabasePath()))
	return server.New(store, server.DefaultSchema(), logger, server.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("listen")
	if addr == "" {
		addr = cfg.Server.Listen
	}

	srv, err := newServer(cfg)
	if err != nil {
		return err
	}

	n, err := srv.Seed()
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("seeded default settings", zap.Int("count", n))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving admin interface on %s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	srv, err := newServer(cfg)
	if err != nil {
		return err
	}

	pass, err := promptPassword(fmt.Sprintf("Password for %s: ", args[0]))
	if err != nil {
		return err
	}
	if pass == "" {
		return fmt.Errorf("password must not be empty")
	}
	if err := srv.AddUser(args[0], pass); err != nil {
		return err
	}
	fmt.Printf("User %s saved\n", args[0])
	return nil
}
