package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/redis"
)

type watchOptions struct {
	addr     string
	password string
	db       int
	kinds    []string
	count    int
}

// notificationLine is the text rendering of one pub/sub message.
type notificationLine struct {
	Kind          string         `json:"kind"`
	AggregateID   string         `json:"aggregate_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Version       int64          `json:"version"`
	CorrelationID string         `json:"correlation_id"`
	Payload       map[string]any `json:"payload"`
}

// NewWatchCommand creates the watch command, which tails progress
// notifications from Redis pub/sub.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print progress notifications published to Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.addr == "" {
				opts.addr = os.Getenv("REDIS_ADDR")
			}
			if opts.addr == "" {
				opts.addr = redis.DefaultConfig().Addr
			}
			if len(opts.kinds) == 0 {
				return fmt.Errorf("at least one --kind is required")
			}
			return watch(cmd.Context(), cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "redis-addr", "", "Redis address (default: REDIS_ADDR or localhost:6379)")
	cmd.Flags().StringVar(&opts.password, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&opts.db, "redis-db", 0, "Redis database")
	cmd.Flags().StringSliceVar(&opts.kinds, "kind", redis.NotificationKinds, "notification kinds to follow")
	cmd.Flags().IntVar(&opts.count, "count", 0, "exit after this many notifications (0: run until interrupted)")

	return cmd
}

func watch(ctx context.Context, cmd *cobra.Command, rootOpts *RootOptions, opts *watchOptions) error {
	cfg := redis.DefaultConfig()
	cfg.Addr = opts.addr
	cfg.Password = opts.password
	cfg.DB = opts.db

	cache, err := redis.NewCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	channels := make([]string, 0, len(opts.kinds))
	for _, kind := range opts.kinds {
		channels = append(channels, redis.NotificationChannel(kind))
	}

	sub := cache.Subscribe(ctx, channels...)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	out := cmd.OutOrStdout()
	messages := sub.Channel()
	for seen := 0; opts.count == 0 || seen < opts.count; seen++ {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if rootOpts.Format == "json" {
				fmt.Fprintln(out, msg.Payload)
				continue
			}
			var n notificationLine
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				fmt.Fprintf(out, "%s  %s\n", msg.Channel, msg.Payload)
				continue
			}
			fmt.Fprintf(out, "%s  %-11s user=%s v%d %v\n",
				n.Timestamp.UTC().Format(time.RFC3339), n.Kind, n.AggregateID, n.Version, n.Payload)
		}
	}
	return nil
}
