package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/momo-checkout/internal/usecase"
	"github.com/wekeepgrowing/momo-checkout/pkg/messaging"
)

func newWatchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [topic...]",
		Short: "Stream terminal payment events from the redis broker",
		Long: `watch subscribes to payment topics on the configured redis broker and
prints each event as one JSON line. Without arguments it follows
payment.completed, payment.failed and payment.expired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Messaging.Driver != "redis" {
				return fmt.Errorf("watch needs messaging.driver redis, configured %q", cfg.Messaging.Driver)
			}

			topics := args
			if len(topics) == 0 {
				topics = []string{usecase.TopicPaymentCompleted, usecase.TopicPaymentFailed, usecase.TopicPaymentExpired}
			}

			client, err := messaging.NewRedisClient(cfg.Messaging.Addr, cfg.Messaging.Password, cfg.Messaging.DB)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return watch(ctx, client, topics, func(msg messaging.Message) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", msg.Channel, msg.Payload)
			})
		},
	}
}

type subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan messaging.Message, error)
}

// watch fans in every topic and calls emit serially until ctx ends.
func watch(ctx context.Context, sub subscriber, topics []string, emit func(messaging.Message)) error {
	merged := make(chan messaging.Message)
	var wg sync.WaitGroup

	for _, topic := range topics {
		ch, err := sub.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(ch <-chan messaging.Message) {
			defer wg.Done()
			for msg := range ch {
				select {
				case merged <- msg:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	for msg := range merged {
		emit(msg)
	}
	return nil
}
