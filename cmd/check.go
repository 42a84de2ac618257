package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dukerupert/certadmin/internal/check"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the admin server is reachable on every subsystem",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	client, conn, err := connect()
	if err != nil {
		return err
	}

	result := check.Check(context.Background(), client, conn.Host(), nil, logger)

	fmt.Println("Host Resolution")
	res := result.Resolution
	fmt.Printf("  Host: %s\n", res.Host)
	if res.Error != "" {
		fmt.Printf("  Error: %s\n", res.Error)
	} else if len(res.Addrs) > 0 {
		fmt.Printf("  Resolves to: %s\n", strings.Join(res.Addrs, ", "))
	}
	fmt.Printf("  Status: %s\n", res.Status)

	fmt.Println()
	fmt.Println("Subsystems")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "  DESTINATION\tSCOPE\tSTATUS\tDETAIL")
	fmt.Fprintln(w, "  ───────────\t─────\t──────\t──────")
	for _, p := range result.Probes {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", p.Destination, p.Scope, p.Status, p.Error)
	}
	w.Flush()

	fmt.Println()
	switch result.Summary {
	case check.StatusPass:
		fmt.Println("Summary: All checks passed")
	case check.StatusFail:
		fmt.Println("Summary: Server check failed")
	case check.StatusWarn:
		fmt.Println("Summary: Server reachable, some subsystems refused the request")
	}

	if result.Summary == check.StatusFail {
		return fmt.Errorf("check failed")
	}
	return nil
}
