package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vizora/signage/internal/domain"
	"github.com/vizora/signage/pkg/logger"
	"github.com/vizora/signage/pkg/tracing"
)

// TemplateRefreshService renders templates against their data sources and
// stores the outcome on the template metadata
type TemplateRefreshService struct {
	repo        domain.ContentRepository
	fetcher     domain.DataFetcher
	processor   domain.TemplateProcessor
	logger      logger.Logger
	concurrency int
	now         func() time.Time
}

func NewTemplateRefreshService(
	repo domain.ContentRepository,
	fetcher domain.DataFetcher,
	processor domain.TemplateProcessor,
	logger logger.Logger,
	concurrency int,
) *TemplateRefreshService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &TemplateRefreshService{
		repo:        repo,
		fetcher:     fetcher,
		processor:   processor,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// IsDue reports whether a template takes part in the next batch
func IsDue(meta *domain.TemplateMetadata, now time.Time) bool {
	if meta == nil || !meta.RefreshConfig.Enabled {
		return false
	}
	return meta.RefreshConfig.IsDue(now)
}

// ProcessTemplateRefresh refreshes every due template. Per template
// failures are counted, never returned.
func (s *TemplateRefreshService) ProcessTemplateRefresh(ctx context.Context) domain.RefreshBatchResult {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateRefreshService", "ProcessTemplateRefresh")
	defer span.End()

	templates, err := s.repo.FindTemplates(ctx)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.Error(fmt.Sprintf("Failed to list templates for refresh: %v", err))
		return domain.RefreshBatchResult{}
	}

	now := s.now()
	due := make([]*domain.ContentRecord, 0, len(templates))
	for _, t := range templates {
		if IsDue(t.Metadata, now) {
			due = append(due, t)
		}
	}
	tracing.AddAttribute(ctx, "templates_due", len(due))
	if len(due) == 0 {
		return domain.RefreshBatchResult{}
	}

	var processed, failed int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, t := range due {
		if ctx.Err() != nil {
			break
		}
		id := t.ID
		g.Go(func() error {
			if err := s.RefreshTemplate(ctx, id, domain.FailOnError); err != nil {
				atomic.AddInt64(&failed, 1)
				s.logger.WithField("template_id", id).Error(fmt.Sprintf("Failed to refresh template: %v", err))
				return nil
			}
			atomic.AddInt64(&processed, 1)
			return nil
		})
	}
	_ = g.Wait()

	result := domain.RefreshBatchResult{Processed: int(processed), Errors: int(failed)}
	s.logger.WithFields(map[string]interface{}{
		"processed": result.Processed,
		"errors":    result.Errors,
	}).Info("Template refresh batch completed")

	return result
}

// RefreshTemplate renders a stored template and persists the result. A
// failed render keeps the previous renderedHtml and records lastError.
func (s *TemplateRefreshService) RefreshTemplate(ctx context.Context, id string, mode domain.RefreshMode) error {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateRefreshService", "RefreshTemplate")
	defer span.End()
	tracing.AddAttribute(ctx, "template_id", id)

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return err
	}
	if !record.IsTemplate() || record.Metadata == nil {
		return &domain.ErrNotATemplate{ID: id}
	}

	meta := record.Metadata.Clone()
	renderErr := s.Render(ctx, id, meta, domain.FailOnError)
	var noHTML *domain.ErrTemplateHasNoHTML
	if errors.As(renderErr, &noHTML) {
		return renderErr
	}

	if err := s.repo.UpdateMetadata(ctx, id, meta); err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("template_id", id).Error(fmt.Sprintf("Failed to save template metadata: %v", err))
		return fmt.Errorf("failed to save template metadata: %w", err)
	}

	if mode == domain.FailOnError {
		return renderErr
	}
	return nil
}

// Render resolves data for meta, processes the template and records the
// outcome on meta. With PersistOnError a failed render only shows up in
// lastError. Errors that make the template unusable are always returned.
func (s *TemplateRefreshService) Render(ctx context.Context, id string, meta *domain.TemplateMetadata, mode domain.RefreshMode) error {
	if strings.TrimSpace(meta.TemplateHTML) == "" {
		return &domain.ErrTemplateHasNoHTML{ID: id}
	}

	html, err := s.render(ctx, meta)
	now := s.now()
	if err != nil {
		meta.RecordFailure(err, now)
		tracing.RecordRefresh(ctx, "error")
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("template_id", id).Warn(fmt.Sprintf("Template render failed, keeping previous output: %v", err))
		if mode == domain.FailOnError {
			return err
		}
		return nil
	}

	meta.RecordSuccess(html, now)
	tracing.RecordRefresh(ctx, "success")
	return nil
}

func (s *TemplateRefreshService) render(ctx context.Context, meta *domain.TemplateMetadata) (string, error) {
	data, err := s.fetcher.FetchDataFromSource(ctx, meta.DataSource)
	if err != nil {
		return "", err
	}
	if data.IsEmpty() && !meta.SampleData.IsEmpty() {
		data = meta.SampleData
	}
	return s.processor.Process(meta.TemplateHTML, data)
}
