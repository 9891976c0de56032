package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/normanking/cortexlipsync/internal/audio"
	"github.com/normanking/cortexlipsync/internal/bus"
	"github.com/normanking/cortexlipsync/internal/config"
	"github.com/normanking/cortexlipsync/internal/feed"
	"github.com/normanking/cortexlipsync/internal/lipsync"
	"github.com/normanking/cortexlipsync/internal/timing"
	"github.com/normanking/cortexlipsync/internal/viseme"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the frame loop and stream frames to WebSocket clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Feed.Addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cache, err := audio.NewClipCache(cfg.Audio.ClipCacheSize)
			if err != nil {
				return fmt.Errorf("clip cache: %w", err)
			}

			eventBus := bus.NewEventBus()
			table := viseme.NewTable()
			if err := table.Reader().Err(); err != nil {
				log.Warn("serve", "Kanji dictionary unavailable, using override readings only", map[string]interface{}{
					"error": err.Error(),
				})
			}
			engine := lipsync.New(cfg.Lipsync(), log.Component("engine"),
				lipsync.WithBus(eventBus),
				lipsync.WithTable(table),
				lipsync.WithEstimator(timing.NewEstimator(table, cfg.Timing)),
				lipsync.WithLoader(audio.NewLoader(cache, log.Component("audio"))),
			)

			server := feed.New(engine, eventBus, cfg.Feed.FPS, log.Component("feed"))
			server.StreamLogs(log)

			manager.Watch(eventBus, func(c *config.Config) {
				engine.Reconfigure(c.Lipsync(), c.Timing)
				if evicted := cache.Resize(c.Audio.ClipCacheSize); evicted > 0 {
					log.Info("serve", "Clip cache shrunk", map[string]interface{}{
						"size":    c.Audio.ClipCacheSize,
						"evicted": evicted,
					})
				}
			})

			log.Info("serve", "Starting lipsync feed", map[string]interface{}{
				"addr":    addr,
				"fps":     cfg.Feed.FPS,
				"logFile": log.GetLogPath(),
			})
			return server.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config feed.addr)")
	return cmd
}
