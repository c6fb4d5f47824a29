package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ailabben/dashboard-api/internal/utils"
)

// newHashKeyCmd prints the bcrypt hash to put into SERVICE_KEYS.
func newHashKeyCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-service-key <name> <secret>",
		Short: "Hash a service key secret for SERVICE_KEYS",
		Long: `Prints "<name>:<bcrypt hash>", ready to append to SERVICE_KEYS.
Callers then authenticate with the header "X-Service-Key: <name>.<secret>".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, secret := args[0], args[1]
			if len(secret) < 16 {
				return errors.New("secret must be at least 16 characters")
			}
			hash, err := utils.HashSecret(secret, cost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%s\n", name, hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost")
	return cmd
}
