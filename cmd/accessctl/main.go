// Command accessctl evaluates route-access decisions offline, against the
// built-in route table or a YAML policy file.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"invoicing-edge/internal/access"
	"invoicing-edge/internal/rbac"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var policyPath string

	cmd := &cobra.Command{
		Use:           "accessctl",
		Short:         "Inspect route-access decisions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&policyPath, "policy", "p", "", "Route table YAML file (default: built-in table)")

	cmd.AddCommand(decideCmd(&policyPath), routesCmd(&policyPath), inspectCmd())
	return cmd
}

func decideCmd(policyPath *string) *cobra.Command {
	var (
		token string
		trace bool
	)
	cmd := &cobra.Command{
		Use:   "decide <url>",
		Short: "Decide a navigation to url for the given credential",
		Example: `  accessctl decide /invoices
  accessctl decide '/dashboard/verify-email/abc' --trace
  accessctl decide /admin --token "$ACCESS_TOKEN"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			routes, err := access.LoadRouteTable(*policyPath)
			if err != nil {
				return err
			}
			engine := access.NewEngine(routes)
			gate := &access.RoleGate{Routes: routes, Allowed: rbac.AdminRoles}
			nav := access.NavigationFromURL(args[0], access.IdentityFromCredential(token))

			if trace {
				chain, ok := engine.Resolve(nav, gate)
				if !ok {
					_ = writeJSON(cmd.OutOrStdout(), chain)
					return fmt.Errorf("no allow within %d hops", access.MaxHops)
				}
				return writeJSON(cmd.OutOrStdout(), chain)
			}
			return writeJSON(cmd.OutOrStdout(), engine.Evaluate(nav, gate))
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "Access token the browser holds")
	cmd.Flags().BoolVar(&trace, "trace", false, "Follow redirects and rewrites until the navigation is allowed")
	return cmd
}

func routesCmd(policyPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the effective route table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			routes, err := access.LoadRouteTable(*policyPath)
			if err != nil {
				return err
			}
			out, err := routes.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

type inspection struct {
	Readable bool                `json:"readable"`
	Claims   access.Claims       `json:"claims"`
	State    access.SessionState `json:"state"`
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Show the advisory claims the guards read from a token",
		Long: `Decodes the token payload without verifying the signature, exactly as the
navigation guards do. The output is advisory and says nothing about validity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := access.InspectClaims(args[0])
			return writeJSON(cmd.OutOrStdout(), inspection{
				Readable: ok,
				Claims:   c,
				State:    access.IdentityFromCredential(args[0]).State(),
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
