// Command certctl issues, revokes, verifies and lists certificates on a certd server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaheed/certd/internal/certificate"
	"github.com/vaheed/certd/internal/client"
	"github.com/vaheed/certd/internal/version"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

func defaultServer() string {
	if v := os.Getenv("CERTD_URL"); v != "" {
		return v
	}
	return "http://localhost:5000"
}

func newRootCmd(out io.Writer) *cobra.Command {
	var server string
	var timeout time.Duration
	root := &cobra.Command{
		Use:          "certctl",
		Short:        "Manage certificates on a certd server",
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&server, "server", defaultServer(), "certd base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")

	run := func(fn func(ctx context.Context, c *client.Client) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := fn(ctx, client.New(server))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
	}

	var in certificate.IssueRequest
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a certificate",
		RunE: run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.Issue(ctx, in)
		}),
	}
	issue.Flags().StringVar(&in.StudentName, "student", "", "student name")
	issue.Flags().StringVar(&in.CourseName, "course", "", "course name")
	issue.Flags().StringVar(&in.CertificateID, "id", "", "certificate id")
	issue.Flags().StringVar(&in.Grade, "grade", "", "grade ("+strings.Join(certificate.Grades, ", ")+")")
	issue.Flags().StringVar(&in.IssuerAddress, "issuer", "", "issuer address")
	for _, f := range []string{"student", "course", "id", "grade"} {
		_ = issue.MarkFlagRequired(f)
	}

	var issuer string
	revoke := &cobra.Command{
		Use:   "revoke ADDRESS",
		Short: "Revoke a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, c *client.Client) (any, error) {
				return c.Revoke(ctx, args[0], issuer)
			})(cmd, args)
		},
	}
	revoke.Flags().StringVar(&issuer, "issuer", "", "issuer address recorded at issuance")

	verify := &cobra.Command{
		Use:   "verify ADDRESS",
		Short: "Verify a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, c *client.Client) (any, error) {
				return c.Verify(ctx, args[0])
			})(cmd, args)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all certificates",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.List(ctx)
		}),
	}

	health := &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.Health(ctx)
		}),
	}

	root.AddCommand(issue, revoke, verify, list, health)
	return root
}
