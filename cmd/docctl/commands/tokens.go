package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ailabben/dashboard-api/internal/model"
	"github.com/ailabben/dashboard-api/internal/service"
)

// newCleanupCmd removes expired tokens.  Intended for a cron job.
func newCleanupCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "cleanup-tokens",
		Short: "Delete download and preview tokens past their expiry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openStores()
			if err != nil {
				return err
			}
			defer st.Close()

			now := time.Now()
			if dryRun {
				n, err := st.Tokens.CountExpired(cmd.Context(), now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d expired tokens would be deleted\n", n)
				return nil
			}
			n, err := st.Tokens.DeleteExpired(cmd.Context(), now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired tokens\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only count the tokens that would be deleted")
	return cmd
}

// newIssueCmd mints a token from the command line, e.g. to mail a link by hand.
func newIssueCmd() *cobra.Command {
	var (
		documentID string
		caller     string
		action     string
		ttl        int
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Issue a download or preview token for a document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, st, err := openStores()
			if err != nil {
				return err
			}
			defer st.Close()

			issuer := service.NewTokenIssuer(st.Tokens, st.Documents, service.IssuerConfig{
				BaseURL:            cfg.Token.PublicBaseURL,
				DownloadTTLMinutes: cfg.Token.DownloadTTLMinutes,
				PreviewTTLMinutes:  cfg.Token.PreviewTTLMinutes,
			})
			tok, err := issuer.Issue(cmd.Context(), service.IssueRequest{
				DocumentID: documentID,
				Caller:     caller,
				Action:     model.ActionType(action),
				TTLMinutes: ttl,
				Metadata:   map[string]string{"source": "docctl"},
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token:      %s\n", tok.Token)
			fmt.Fprintf(out, "url:        %s\n", tok.URL)
			fmt.Fprintf(out, "expires_at: %s\n", tok.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "Document id (required)")
	cmd.Flags().StringVar(&caller, "caller", "", "Identity the token is issued to (required)")
	cmd.Flags().StringVar(&action, "action", string(model.ActionDownload), "download or preview")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "Lifetime in minutes (0 = default for the action)")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}
