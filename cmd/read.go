package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/nvpair"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read [destination] [scope] [name...]",
	Short: "Read raw configuration values",
	Long:  "Sends a single read request and prints the values the server returned. Names the server does not recognize are listed separately.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRead,
}

var modifyCmd = &cobra.Command{
	Use:   "modify [destination] [scope] [name=value...]",
	Short: "Modify raw configuration values",
	Long:  "Sends all name=value pairs in a single modify request. The server applies all of them or none.",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runModify,
}

func init() {
	readCmd.Flags().String("rid", string(admin.RequestConfig), "Request id (resource within the scope)")
	modifyCmd.Flags().String("rid", string(admin.RequestConfig), "Request id (resource within the scope)")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(modifyCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	rid, _ := cmd.Flags().GetString("rid")
	dest, scope := admin.Destination(args[0]), admin.Scope(args[1])
	names := nvpair.Names(args[2:]...)

	client, _, err := connect()
	if err != nil {
		return err
	}

	resp, err := client.Read(context.Background(), dest, scope, admin.RequestID(rid), names)
	if err != nil {
		return err
	}

	printPairs(resp)
	if missing := admin.Missing(names, resp); len(missing) > 0 {
		fmt.Printf("\nNot recognized: %s\n", strings.Join(missing, ", "))
	}
	return nil
}

func runModify(cmd *cobra.Command, args []string) error {
	rid, _ := cmd.Flags().GetString("rid")
	dest, scope := admin.Destination(args[0]), admin.Scope(args[1])

	updates, err := parseAssignments(args[2:])
	if err != nil {
		return err
	}

	client, _, err := connect()
	if err != nil {
		return err
	}
	if err := client.Modify(context.Background(), dest, scope, admin.RequestID(rid), updates); err != nil {
		return err
	}
	fmt.Printf("Modified %d value(s) in %s/%s\n", updates.Len(), dest, scope)
	return nil
}

// parseAssignments turns name=value arguments into an ordered set.
func parseAssignments(args []string) (*nvpair.Set, error) {
	set := nvpair.New()
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", a)
		}
		set.Set(name, value)
	}
	return set, nil
}

func printPairs(set *nvpair.Set) {
	if set.Len() == 0 {
		fmt.Println("No values returned.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVALUE")
	fmt.Fprintln(w, "────\t─────")
	for name, value := range set.All() {
		fmt.Fprintf(w, "%s\t%s\n", name, value)
	}
	w.Flush()
}
