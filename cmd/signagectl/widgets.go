package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vizora/signage/internal/domain"
	"github.com/vizora/signage/internal/service"
	"github.com/vizora/signage/pkg/breaker"
	"github.com/vizora/signage/pkg/cache"
	"github.com/vizora/signage/pkg/logger"
)

func newWidgetsCmd(newLogger func(*cobra.Command) logger.Logger) *cobra.Command {
	var showSample bool

	cmd := &cobra.Command{
		Use:   "widgets",
		Short: "List built-in widget data sources and their config schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd)
			feedCache := cache.NewInMemoryCache[domain.MapOfAny](time.Minute)
			defer feedCache.Stop()

			registry := service.NewWidgetRegistry(
				service.NewRSSWidget(service.RSSWidgetConfig{}, breaker.NewRegistry(breaker.DefaultSettings(), log), feedCache, log),
			)

			out := make([]map[string]interface{}, 0)
			for _, name := range registry.Types() {
				w, _ := registry.Get(name)
				entry := map[string]interface{}{
					"type":   name,
					"schema": w.ConfigSchema(),
				}
				if showSample {
					entry["sampleData"] = w.SampleData()
				}
				out = append(out, entry)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to encode widgets: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSample, "sample", false, "Include sample data")
	return cmd
}
