package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

// TokenCmd mints a bearer token for the write endpoints.
func TokenCmd(auth AuthLoader) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an operator or automation account",
		Example: `  tsi-admin token --subject nightly-pipeline --role OPERATOR --ttl 720h
  curl -H "Authorization: Bearer $(tsi-admin token --subject me --quiet)" ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")
			issuer, err := auth()
			if err != nil {
				return err
			}
			issued, err := issuer.IssueToken(subject, models.UserRole(strings.ToUpper(role)), ttl)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if quiet {
				fmt.Fprintln(out, issued.Token)
				return nil
			}
			fmt.Fprintf(out, "subject: %s\nrole:    %s\nexpires: %s\n\n%s\n",
				issued.Subject, issued.Role, issued.ExpiresAt.Format(time.RFC3339), issued.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "account name recorded in the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleOperator), "ADMIN, OPERATOR or VIEWER")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from JWT_EXPIRATION)")
	cmd.Flags().BoolP("quiet", "q", false, "print only the token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
