package domain

import (
	"context"
	"time"

	"github.com/vizora/signage/pkg/templating"
)

//go:generate mockgen -destination mocks/mock_data_fetcher.go -package mocks github.com/vizora/signage/internal/domain DataFetcher
//go:generate mockgen -destination mocks/mock_template_processor.go -package mocks github.com/vizora/signage/internal/domain TemplateProcessor
//go:generate mockgen -destination mocks/mock_widget_data_source.go -package mocks github.com/vizora/signage/internal/domain WidgetDataSource

// DataFetcher resolves a data source descriptor into a render context
type DataFetcher interface {
	// FetchDataFromSource degrades outbound failures to an empty map
	FetchDataFromSource(ctx context.Context, source DataSourceConfig) (MapOfAny, error)
	// FetchDataStrict returns outbound failures to the caller
	FetchDataStrict(ctx context.Context, source DataSourceConfig) (MapOfAny, error)
	// HasWidget reports whether widget sources of this type can be fetched
	HasWidget(widgetType string) bool
}

// TemplateProcessor validates, renders and sanitizes template source
type TemplateProcessor interface {
	Validate(source string) ValidationResult
	Process(source string, data map[string]interface{}) (string, error)
}

type ValidationResult = templating.ValidationResult

// WidgetDataSource is a built-in data provider selected by widget type
type WidgetDataSource interface {
	Type() string
	FetchData(ctx context.Context, config MapOfAny) (MapOfAny, error)
	ConfigSchema() MapOfAny
	SampleData() MapOfAny
}

// RefreshMode tells the refresh routine what to do with a failure once
// it has been recorded on the template
type RefreshMode int

const (
	// PersistOnError records the failure in lastError and reports success
	PersistOnError RefreshMode = iota
	// FailOnError records the failure and returns it
	FailOnError
)

func (m RefreshMode) String() string {
	if m == FailOnError {
		return "failOnError"
	}
	return "persistOnError"
}

type RefreshBatchResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

type CreateTemplateInput struct {
	Name          string            `json:"name"`
	TemplateHTML  string            `json:"templateHtml"`
	DataSource    *DataSourceConfig `json:"dataSource,omitempty"`
	RefreshConfig *RefreshConfig    `json:"refreshConfig,omitempty"`
	SampleData    MapOfAny          `json:"sampleData,omitempty"`
}

// UpdateTemplateInput is a partial update, nil fields are left untouched
type UpdateTemplateInput struct {
	Name          *string           `json:"name,omitempty"`
	TemplateHTML  *string           `json:"templateHtml,omitempty"`
	DataSource    *DataSourceConfig `json:"dataSource,omitempty"`
	RefreshConfig *RefreshConfig    `json:"refreshConfig,omitempty"`
	SampleData    MapOfAny          `json:"sampleData,omitempty"`
}

type PreviewTemplateInput struct {
	TemplateHTML string            `json:"templateHtml"`
	DataSource   *DataSourceConfig `json:"dataSource,omitempty"`
	SampleData   MapOfAny          `json:"sampleData,omitempty"`
}

type PreviewResult struct {
	HTML string `json:"html"`
}

type RenderedTemplate struct {
	HTML       string     `json:"html"`
	RenderedAt *time.Time `json:"renderedAt"`
}

// CircuitStats is a point in time view of one breaker
type CircuitStats struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalFailures        uint32 `json:"totalFailures"`
	ConsecutiveFailures  uint32 `json:"consecutiveFailures"`
	ConsecutiveSuccesses uint32 `json:"consecutiveSuccesses"`
}

// TemplateService is consumed by request handlers and operator tooling
type TemplateService interface {
	CreateTemplate(ctx context.Context, input CreateTemplateInput) (*ContentRecord, error)
	UpdateTemplate(ctx context.Context, id string, input UpdateTemplateInput) (*ContentRecord, error)
	PreviewTemplate(ctx context.Context, input PreviewTemplateInput) (*PreviewResult, error)
	ValidateTemplateHtml(source string) ValidationResult
	GetRenderedTemplate(ctx context.Context, id string) (*RenderedTemplate, error)
	TriggerTemplateRefresh(ctx context.Context, id string) error
	GetCircuitStats() []CircuitStats
	ResetCircuit(name string) bool
}
