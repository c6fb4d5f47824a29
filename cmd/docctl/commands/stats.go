package commands

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print download statistics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := openStores()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Logs.Stats(cmd.Context(), time.Now(), top)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "Number of most downloaded documents to list")
	return cmd
}
