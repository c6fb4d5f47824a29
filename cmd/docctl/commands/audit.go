package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ailabben/dashboard-api/internal/queue"
)

// newConsumeAuditCmd drains the delivery queue into download_logs.  Use it
// when the server runs with AUDIT_CONSUMER=false.
func newConsumeAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume-audit",
		Short: "Write queued delivery events to download_logs until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, st, err := openStores()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log.Info().Str("queue", cfg.Audit.Queue).Msg("consuming delivery events")
			err = queue.StartDeliveryConsumer(ctx, cfg.Audit.AMQPURL, cfg.Audit.Queue, st.Logs)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
