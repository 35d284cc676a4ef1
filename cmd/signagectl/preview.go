package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vizora/signage/internal/domain"
	"github.com/vizora/signage/internal/service"
	"github.com/vizora/signage/pkg/breaker"
	"github.com/vizora/signage/pkg/cache"
	"github.com/vizora/signage/pkg/logger"
	"github.com/vizora/signage/pkg/templating"
)

type previewOptions struct {
	dataFile     string
	sourceFile   string
	requireHTTPS bool
	timeout      time.Duration
}

func newPreviewCmd(newLogger func(*cobra.Command) logger.Logger) *cobra.Command {
	opts := previewOptions{}

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Render a template and print the sanitized HTML",
		Long: `Render a template the way the refresh worker does.

Data comes from --source, a JSON data source descriptor, when given.
--data is used as sample data, and as the only data without --source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args[0], opts, newLogger(cmd))
		},
	}

	cmd.Flags().StringVarP(&opts.dataFile, "data", "d", "", "JSON file with sample data")
	cmd.Flags().StringVarP(&opts.sourceFile, "source", "s", "", "JSON file with a data source descriptor")
	cmd.Flags().BoolVar(&opts.requireHTTPS, "require-https", false, "Reject plain http data sources")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", service.DefaultFetchTimeout, "Fetch timeout")
	return cmd
}

func readJSONFile(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func runPreview(cmd *cobra.Command, file string, opts previewOptions, log logger.Logger) error {
	source, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	input := domain.PreviewTemplateInput{TemplateHTML: string(source)}
	if opts.dataFile != "" {
		if err := readJSONFile(opts.dataFile, &input.SampleData); err != nil {
			return err
		}
	}
	if opts.sourceFile != "" {
		var ds domain.DataSourceConfig
		if err := readJSONFile(opts.sourceFile, &ds); err != nil {
			return err
		}
		input.DataSource = &ds
	}

	breakers := breaker.NewRegistry(breaker.DefaultSettings(), log)
	feedCache := cache.NewInMemoryCache[domain.MapOfAny](time.Minute)
	defer feedCache.Stop()

	widgets := service.NewWidgetRegistry(
		service.NewRSSWidget(service.RSSWidgetConfig{Timeout: opts.timeout}, breakers, feedCache, log),
	)
	fetcher := service.NewDataFetcherService(service.DataFetcherConfig{
		Timeout:      opts.timeout,
		RequireHTTPS: opts.requireHTTPS,
	}, breakers, widgets, log)
	renderer := templating.NewRenderer(templating.NewHelperRegistry())

	// the template service needs a store only for persisted templates
	svc := service.NewTemplateService(nil, fetcher, renderer, nil, breakers, log)

	result, err := svc.PreviewTemplate(context.Background(), input)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.HTML)
	return nil
}
