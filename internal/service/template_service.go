package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vizora/signage/internal/domain"
	"github.com/vizora/signage/pkg/breaker"
	"github.com/vizora/signage/pkg/logger"
	"github.com/vizora/signage/pkg/tracing"
)

const defaultRefreshIntervalMinutes = 15

type TemplateService struct {
	repo      domain.ContentRepository
	fetcher   domain.DataFetcher
	processor domain.TemplateProcessor
	refresher *TemplateRefreshService
	breakers  *breaker.Registry
	logger    logger.Logger
	now       func() time.Time
}

func NewTemplateService(
	repo domain.ContentRepository,
	fetcher domain.DataFetcher,
	processor domain.TemplateProcessor,
	refresher *TemplateRefreshService,
	breakers *breaker.Registry,
	logger logger.Logger,
) *TemplateService {
	return &TemplateService{
		repo:      repo,
		fetcher:   fetcher,
		processor: processor,
		refresher: refresher,
		breakers:  breakers,
		logger:    logger,
		now:       time.Now,
	}
}

var _ domain.TemplateService = (*TemplateService)(nil)

func (s *TemplateService) validateHTML(source string) error {
	result := s.processor.Validate(source)
	if result.Valid {
		return nil
	}
	return domain.NewValidationError(fmt.Sprintf("invalid template: %s", strings.Join(result.Errors, "; ")))
}

// checkWidget rejects widget sources whose type is not registered, so the
// mistake surfaces on save instead of on every refresh
func (s *TemplateService) checkWidget(source domain.DataSourceConfig) error {
	if source.Kind != domain.DataSourceWidget || source.Widget == nil {
		return nil
	}
	if !s.fetcher.HasWidget(source.Widget.WidgetType) {
		return domain.NewValidationError(fmt.Sprintf("unknown widget type %q", source.Widget.WidgetType))
	}
	return nil
}

// CreateTemplate stores a new template together with its first render. A
// failing data source does not prevent the create, the failure ends up in
// refreshConfig.lastError.
func (s *TemplateService) CreateTemplate(ctx context.Context, input domain.CreateTemplateInput) (*domain.ContentRecord, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "CreateTemplate")
	defer span.End()

	if err := s.validateHTML(input.TemplateHTML); err != nil {
		return nil, err
	}

	meta := &domain.TemplateMetadata{
		TemplateHTML: input.TemplateHTML,
		DataSource:   domain.NewManualSource(nil),
		RefreshConfig: domain.RefreshConfig{
			Enabled:         true,
			IntervalMinutes: defaultRefreshIntervalMinutes,
		},
		SampleData: input.SampleData,
	}
	if input.DataSource != nil {
		meta.DataSource = *input.DataSource
	}
	if input.RefreshConfig != nil {
		meta.RefreshConfig = domain.RefreshConfig{
			Enabled:         input.RefreshConfig.Enabled,
			IntervalMinutes: input.RefreshConfig.IntervalMinutes,
		}
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkWidget(meta.DataSource); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &domain.ContentRecord{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(input.Name),
		Type:      domain.ContentTypeTemplate,
		Status:    domain.ContentStatusActive,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := record.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	tracing.AddAttribute(ctx, "template_id", record.ID)

	if err := s.refresher.Render(ctx, record.ID, meta, domain.PersistOnError); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("template_id", record.ID).Error(fmt.Sprintf("Failed to create template: %v", err))
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	return record, nil
}

// UpdateTemplate applies a partial update. The template is rendered again
// only when something that affects the output changed.
func (s *TemplateService) UpdateTemplate(ctx context.Context, id string, input domain.UpdateTemplateInput) (*domain.ContentRecord, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "UpdateTemplate")
	defer span.End()
	tracing.AddAttribute(ctx, "template_id", id)

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.IsTemplate() || record.Metadata == nil {
		return nil, &domain.ErrNotATemplate{ID: id}
	}

	meta := record.Metadata.Clone()
	rerender := false

	if input.Name != nil {
		record.Name = strings.TrimSpace(*input.Name)
	}
	if input.TemplateHTML != nil && *input.TemplateHTML != meta.TemplateHTML {
		if err := s.validateHTML(*input.TemplateHTML); err != nil {
			return nil, err
		}
		meta.TemplateHTML = *input.TemplateHTML
		rerender = true
	}
	if input.DataSource != nil {
		if err := input.DataSource.Validate(); err != nil {
			return nil, err
		}
		if err := s.checkWidget(*input.DataSource); err != nil {
			return nil, err
		}
		meta.DataSource = *input.DataSource
		rerender = true
	}
	if input.SampleData != nil && !reflect.DeepEqual(input.SampleData, meta.SampleData) {
		meta.SampleData = input.SampleData
		rerender = true
	}
	if input.RefreshConfig != nil {
		if err := input.RefreshConfig.Validate(); err != nil {
			return nil, err
		}
		meta.RefreshConfig.Enabled = input.RefreshConfig.Enabled
		meta.RefreshConfig.IntervalMinutes = input.RefreshConfig.IntervalMinutes
	}

	record.Metadata = meta
	record.UpdatedAt = s.now().UTC()
	if err := record.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	if rerender {
		if err := s.refresher.Render(ctx, id, meta, domain.PersistOnError); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, record); err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("template_id", id).Error(fmt.Sprintf("Failed to update template: %v", err))
		return nil, fmt.Errorf("failed to update template: %w", err)
	}

	return record, nil
}

// PreviewTemplate renders without touching storage. Fetch failures are
// returned so the author sees them.
func (s *TemplateService) PreviewTemplate(ctx context.Context, input domain.PreviewTemplateInput) (*domain.PreviewResult, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "PreviewTemplate")
	defer span.End()

	if err := s.validateHTML(input.TemplateHTML); err != nil {
		return nil, err
	}

	data := input.SampleData
	if input.DataSource != nil {
		if err := input.DataSource.Validate(); err != nil {
			return nil, err
		}
		fetched, err := s.fetcher.FetchDataStrict(ctx, *input.DataSource)
		if err != nil {
			tracing.MarkSpanError(ctx, err)
			return nil, err
		}
		if !fetched.IsEmpty() {
			data = fetched
		}
	}
	if data == nil {
		data = domain.MapOfAny{}
	}

	html, err := s.processor.Process(input.TemplateHTML, data)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, err
	}
	return &domain.PreviewResult{HTML: html}, nil
}

func (s *TemplateService) ValidateTemplateHtml(source string) domain.ValidationResult {
	return s.processor.Validate(source)
}

// GetRenderedTemplate returns the last successful render, empty when the
// template was never rendered
func (s *TemplateService) GetRenderedTemplate(ctx context.Context, id string) (*domain.RenderedTemplate, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.IsTemplate() || record.Metadata == nil {
		return nil, &domain.ErrNotATemplate{ID: id}
	}
	if record.Metadata.RenderedHTML == "" {
		return &domain.RenderedTemplate{}, nil
	}
	return &domain.RenderedTemplate{
		HTML:       record.Metadata.RenderedHTML,
		RenderedAt: record.Metadata.RenderedAt,
	}, nil
}

func (s *TemplateService) TriggerTemplateRefresh(ctx context.Context, id string) error {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "TriggerTemplateRefresh")
	defer span.End()

	err := s.refresher.RefreshTemplate(ctx, id, domain.FailOnError)
	if err == nil {
		return nil
	}
	tracing.MarkSpanError(ctx, err)

	var notFound *domain.ErrNotFound
	var notTemplate *domain.ErrNotATemplate
	var noHTML *domain.ErrTemplateHasNoHTML
	if errors.As(err, &notFound) || errors.As(err, &notTemplate) || errors.As(err, &noHTML) {
		return err
	}

	s.logger.WithField("template_id", id).Error(fmt.Sprintf("Failed to refresh template: %v", err))
	return &domain.ErrRefreshFailed{TemplateID: id, Err: err}
}

func (s *TemplateService) GetCircuitStats() []domain.CircuitStats {
	stats := s.breakers.Stats()
	out := make([]domain.CircuitStats, 0, len(stats))
	for _, st := range stats {
		out = append(out, domain.CircuitStats{
			Name:                 st.Name,
			State:                st.State.String(),
			Requests:             st.Counts.Requests,
			TotalFailures:        st.Counts.TotalFailures,
			ConsecutiveFailures:  st.Counts.ConsecutiveFailures,
			ConsecutiveSuccesses: st.Counts.ConsecutiveSuccesses,
		})
	}
	return out
}

// ResetCircuit reports whether a breaker with that name existed
func (s *TemplateService) ResetCircuit(name string) bool {
	return s.breakers.Reset(name)
}
