package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizora/signage/internal/domain"
	"github.com/vizora/signage/internal/domain/mocks"
	"github.com/vizora/signage/pkg/logger"
	"github.com/vizora/signage/pkg/templating"
)

var refreshNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type refreshFixture struct {
	service   *TemplateRefreshService
	repo      *mocks.MockContentRepository
	fetcher   *mocks.MockDataFetcher
	processor *mocks.MockTemplateProcessor
}

func newRefreshFixture(t *testing.T, concurrency int) *refreshFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	fx := &refreshFixture{
		repo:      mocks.NewMockContentRepository(ctrl),
		fetcher:   mocks.NewMockDataFetcher(ctrl),
		processor: mocks.NewMockTemplateProcessor(ctrl),
	}
	fx.service = NewTemplateRefreshService(fx.repo, fx.fetcher, fx.processor, logger.NewMockLogger(), concurrency)
	fx.service.now = func() time.Time { return refreshNow }
	return fx
}

func templateRecord(id string, lastRefreshAgo time.Duration) *domain.ContentRecord {
	last := refreshNow.Add(-lastRefreshAgo)
	renderedAt := last
	return &domain.ContentRecord{
		ID:     id,
		Name:   "Lobby board",
		Type:   domain.ContentTypeTemplate,
		Status: domain.ContentStatusActive,
		Metadata: &domain.TemplateMetadata{
			TemplateHTML: "<h1>{{title}}</h1>",
			DataSource:   domain.NewRemoteSource(domain.DataSourceRestAPI, "https://api.example.com/data"),
			RefreshConfig: domain.RefreshConfig{
				Enabled:         true,
				IntervalMinutes: 15,
				LastRefresh:     &last,
			},
			SampleData:   domain.MapOfAny{"title": "Sample"},
			RenderedHTML: "<h1>Old Content</h1>",
			RenderedAt:   &renderedAt,
		},
	}
}

func TestIsDue(t *testing.T) {
	record := templateRecord("t1", 15*time.Minute)
	assert.True(t, IsDue(record.Metadata, refreshNow))

	record = templateRecord("t1", 14*time.Minute)
	assert.False(t, IsDue(record.Metadata, refreshNow))

	record.Metadata.RefreshConfig.LastRefresh = nil
	assert.True(t, IsDue(record.Metadata, refreshNow))

	record.Metadata.RefreshConfig.Enabled = false
	assert.False(t, IsDue(record.Metadata, refreshNow))

	assert.False(t, IsDue(nil, refreshNow))
}

func TestProcessTemplateRefresh_RefreshesOnlyDueTemplates(t *testing.T) {
	fx := newRefreshFixture(t, 1)

	due := templateRecord("due", 20*time.Minute)
	recent := templateRecord("recent", time.Minute)
	disabled := templateRecord("disabled", time.Hour)
	disabled.Metadata.RefreshConfig.Enabled = false
	noMetadata := &domain.ContentRecord{ID: "bare", Type: domain.ContentTypeTemplate}

	fx.repo.EXPECT().FindTemplates(gomock.Any()).Return([]*domain.ContentRecord{due, recent, disabled, noMetadata}, nil)
	fx.repo.EXPECT().FindByID(gomock.Any(), "due").Return(due, nil)
	fx.fetcher.EXPECT().FetchDataFromSource(gomock.Any(), due.Metadata.DataSource).Return(domain.MapOfAny{"title": "New"}, nil)
	fx.processor.EXPECT().Process("<h1>{{title}}</h1>", map[string]interface{}(domain.MapOfAny{"title": "New"})).Return("<h1>New</h1>", nil)

	var saved *domain.TemplateMetadata
	fx.repo.EXPECT().UpdateMetadata(gomock.Any(), "due", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, meta *domain.TemplateMetadata) error {
			saved = meta
			return nil
		})

	result := fx.service.ProcessTemplateRefresh(context.Background())

	assert.Equal(t, domain.RefreshBatchResult{Processed: 1, Errors: 0}, result)
	require.NotNil(t, saved)
	assert.Equal(t, "<h1>New</h1>", saved.RenderedHTML)
	assert.Equal(t, refreshNow, *saved.RenderedAt)
	assert.Equal(t, refreshNow, *saved.RefreshConfig.LastRefresh)
	assert.Empty(t, saved.RefreshConfig.LastError)

	// the listed record is not mutated in place
	assert.Equal(t, "<h1>Old Content</h1>", due.Metadata.RenderedHTML)
}

func TestProcessTemplateRefresh_CountsFailures(t *testing.T) {
	fx := newRefreshFixture(t, 1)
	record := templateRecord("t1", time.Hour)

	fx.repo.EXPECT().FindTemplates(gomock.Any()).Return([]*domain.ContentRecord{record}, nil)
	fx.repo.EXPECT().FindByID(gomock.Any(), "t1").Return(record, nil)
	fx.fetcher.EXPECT().FetchDataFromSource(gomock.Any(), gomock.Any()).Return(nil, errors.New("API Error"))

	var saved *domain.TemplateMetadata
	fx.repo.EXPECT().UpdateMetadata(gomock.Any(), "t1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, meta *domain.TemplateMetadata) error {
			saved = meta
			return nil
		})

	result := fx.service.ProcessTemplateRefresh(context.Background())

	assert.Equal(t, domain.RefreshBatchResult{Processed: 0, Errors: 1}, result)
	require.NotNil(t, saved)
	assert.Equal(t, "API Error", saved.RefreshConfig.LastError)
	assert.Equal(t, refreshNow, *saved.RefreshConfig.LastRefresh)
	assert.Equal(t, "<h1>Old Content</h1>", saved.RenderedHTML)
	assert.Equal(t, refreshNow.Add(-time.Hour), *saved.RenderedAt)
}

func TestProcessTemplateRefresh_ListingFailure(t *testing.T) {
	fx := newRefreshFixture(t, 1)
	fx.repo.EXPECT().FindTemplates(gomock.Any()).Return(nil, errors.New("connection refused"))

	result := fx.service.ProcessTemplateRefresh(context.Background())

	assert.Equal(t, domain.RefreshBatchResult{}, result)
}

func TestProcessTemplateRefresh_EmptyList(t *testing.T) {
	fx := newRefreshFixture(t, 1)
	fx.repo.EXPECT().FindTemplates(gomock.Any()).Return(nil, nil)

	assert.Equal(t, domain.RefreshBatchResult{}, fx.service.ProcessTemplateRefresh(context.Background()))
}

func TestProcessTemplateRefresh_BoundedConcurrency(t *testing.T) {
	fx := newRefreshFixture(t, 2)

	var records []*domain.ContentRecord
	byID := map[string]*domain.ContentRecord{}
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		r := templateRecord(id, time.Hour)
		records = append(records, r)
		byID[id] = r
	}

	var mu sync.Mutex
	var inFlight, peak int
	fx.repo.EXPECT().FindTemplates(gomock.Any()).Return(records, nil)
	fx.repo.EXPECT().FindByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (*domain.ContentRecord, error) {
			return byID[id], nil
		}).Times(5)
	fx.fetcher.EXPECT().FetchDataFromSource(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.DataSourceConfig) (domain.MapOfAny, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			return domain.MapOfAny{"title": "x"}, nil
		}).Times(5)
	fx.processor.EXPECT().Process(gomock.Any(), gomock.Any()).Return("<h1>x</h1>", nil).Times(5)
	fx.repo.EXPECT().UpdateMetadata(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(5)

	result := fx.service.ProcessTemplateRefresh(context.Background())

	assert.Equal(t, 5, result.Processed)
	assert.LessOrEqual(t, peak, 2)
}

func TestRefreshTemplate_LookupErrors(t *testing.T) {
	fx := newRefreshFixture(t, 1)

	fx.repo.EXPECT().FindByID(gomock.Any(), "missing").Return(nil, &domain.ErrNotFound{Entity: "Content", ID: "missing"})
	err := fx.service.RefreshTemplate(context.Background(), "missing", domain.FailOnError)
	assert.EqualError(t, err, "Content missing not found")

	fx.repo.EXPECT().FindByID(gomock.Any(), "image-123").Return(&domain.ContentRecord{ID: "image-123", Type: domain.ContentTypeImage}, nil)
	err = fx.service.RefreshTemplate(context.Background(), "image-123", domain.FailOnError)
	assert.EqualError(t, err, "Content image-123 is not a template")

	noHTML := templateRecord("t1", time.Hour)
	noHTML.Metadata.TemplateHTML = ""
	fx.repo.EXPECT().FindByID(gomock.Any(), "t1").Return(noHTML, nil)
	err = fx.service.RefreshTemplate(context.Background(), "t1", domain.FailOnError)
	assert.EqualError(t, err, "Template t1 has no HTML")
}

func TestRefreshTemplate_ModesOnFailure(t *testing.T) {
	for _, mode := range []domain.RefreshMode{domain.FailOnError, domain.PersistOnError} {
		t.Run(mode.String(), func(t *testing.T) {
			fx := newRefreshFixture(t, 1)
			record := templateRecord("t1", time.Hour)

			fx.repo.EXPECT().FindByID(gomock.Any(), "t1").Return(record, nil)
			fx.fetcher.EXPECT().FetchDataFromSource(gomock.Any(), gomock.Any()).Return(domain.MapOfAny{"title": "x"}, nil)
			fx.processor.EXPECT().Process(gomock.Any(), gomock.Any()).
				Return("", &templating.TemplateValidationError{Errors: []string{"Forbidden tag: <iframe>"}})
			fx.repo.EXPECT().UpdateMetadata(gomock.Any(), "t1", gomock.Any()).
				DoAndReturn(func(_ context.Context, _ string, meta *domain.TemplateMetadata) error {
					assert.Equal(t, "Template validation failed: Forbidden tag: <iframe>", meta.RefreshConfig.LastError)
					assert.Equal(t, "<h1>Old Content</h1>", meta.RenderedHTML)
					return nil
				})

			err := fx.service.RefreshTemplate(context.Background(), "t1", mode)
			if mode == domain.FailOnError {
				var validationErr *templating.TemplateValidationError
				assert.ErrorAs(t, err, &validationErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRefreshTemplate_UsesSampleDataWhenEmpty(t *testing.T) {
	fx := newRefreshFixture(t, 1)
	record := templateRecord("t1", time.Hour)

	fx.repo.EXPECT().FindByID(gomock.Any(), "t1").Return(record, nil)
	fx.fetcher.EXPECT().FetchDataFromSource(gomock.Any(), gomock.Any()).Return(domain.MapOfAny{}, nil)
	fx.processor.EXPECT().Process("<h1>{{title}}</h1>", map[string]interface{}(domain.MapOfAny{"title": "Sample"})).Return("<h1>Sample</h1>", nil)
	fx.repo.EXPECT().UpdateMetadata(gomock.Any(), "t1", gomock.Any()).Return(nil)

	require.NoError(t, fx.service.RefreshTemplate(context.Background(), "t1", domain.FailOnError))
}

func TestRefreshTemplate_SaveFailure(t *testing.T) {
	fx := newRefreshFixture(t, 1)
	record := templateRecord("t1", time.Hour)

	fx.repo.EXPECT().FindByID(gomock.Any(), "t1").Return(record, nil)
	fx.fetcher.EXPECT().FetchDataFromSource(gomock.Any(), gomock.Any()).Return(domain.MapOfAny{"title": "x"}, nil)
	fx.processor.EXPECT().Process(gomock.Any(), gomock.Any()).Return("<h1>x</h1>", nil)
	fx.repo.EXPECT().UpdateMetadata(gomock.Any(), "t1", gomock.Any()).Return(errors.New("deadlock detected"))

	err := fx.service.RefreshTemplate(context.Background(), "t1", domain.PersistOnError)
	assert.EqualError(t, err, "failed to save template metadata: deadlock detected")
}

func TestRefreshTemplate_WithRenderer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockContentRepository(ctrl)
	fetcher := NewDataFetcherService(DataFetcherConfig{}, newTestBreakers(), nil, logger.NewMockLogger())
	svc := NewTemplateRefreshService(repo, fetcher, templating.NewRenderer(nil), logger.NewMockLogger(), 1)

	record := templateRecord("t1", time.Hour)
	record.Metadata.TemplateHTML = `<h1>{{title}}</h1><p>{{note}}</p>`
	record.Metadata.DataSource = domain.NewManualSource(domain.MapOfAny{
		"title": "Welcome",
		"note":  `<img src=x onerror="alert(1)">`,
	})

	repo.EXPECT().FindByID(gomock.Any(), "t1").Return(record, nil)
	var saved *domain.TemplateMetadata
	repo.EXPECT().UpdateMetadata(gomock.Any(), "t1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, meta *domain.TemplateMetadata) error {
			saved = meta
			return nil
		})

	require.NoError(t, svc.RefreshTemplate(context.Background(), "t1", domain.FailOnError))
	require.NotNil(t, saved)
	assert.Contains(t, saved.RenderedHTML, "<h1>Welcome</h1>")
	assert.Contains(t, saved.RenderedHTML, "&lt;img")
	assert.NotContains(t, saved.RenderedHTML, "<img")
}
