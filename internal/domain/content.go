package domain

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

//go:generate mockgen -destination mocks/mock_content_repository.go -package mocks github.com/vizora/signage/internal/domain ContentRepository

type ContentType string

const (
	ContentTypeTemplate ContentType = "template"
	ContentTypeImage    ContentType = "image"
	ContentTypeVideo    ContentType = "video"
	ContentTypeURL      ContentType = "url"
	ContentTypeHTML     ContentType = "html"
)

type ContentStatus string

const (
	ContentStatusActive   ContentStatus = "active"
	ContentStatusArchived ContentStatus = "archived"
)

// ContentRecord is a row of the content store. Only records of type
// template carry metadata the engine understands.
type ContentRecord struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      ContentType       `json:"type"`
	Status    ContentStatus     `json:"status"`
	Metadata  *TemplateMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (c *ContentRecord) IsTemplate() bool {
	return c.Type == ContentTypeTemplate
}

func (c *ContentRecord) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("invalid content: id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("invalid content: name is required")
	}
	if len(c.Name) > 255 {
		return fmt.Errorf("invalid content: name length must be between 1 and 255")
	}
	switch c.Type {
	case ContentTypeTemplate, ContentTypeImage, ContentTypeVideo, ContentTypeURL, ContentTypeHTML:
	default:
		return fmt.Errorf("invalid content: unknown type %q", c.Type)
	}
	switch c.Status {
	case ContentStatusActive, ContentStatusArchived:
	default:
		return fmt.Errorf("invalid content: unknown status %q", c.Status)
	}
	if c.IsTemplate() && c.Metadata == nil {
		return fmt.Errorf("invalid content: template metadata is required")
	}
	return nil
}

// TemplateMetadata is the JSON blob stored on template content records.
// RenderedHTML and RenderedAt always describe the last successful render.
type TemplateMetadata struct {
	TemplateHTML  string           `json:"templateHtml"`
	DataSource    DataSourceConfig `json:"dataSource"`
	RefreshConfig RefreshConfig    `json:"refreshConfig"`
	SampleData    MapOfAny         `json:"sampleData,omitempty"`
	RenderedHTML  string           `json:"renderedHtml,omitempty"`
	RenderedAt    *time.Time       `json:"renderedAt,omitempty"`
}

type RefreshConfig struct {
	Enabled         bool       `json:"enabled"`
	IntervalMinutes int        `json:"intervalMinutes"`
	LastRefresh     *time.Time `json:"lastRefresh,omitempty"`
	LastError       string     `json:"lastError,omitempty"`
}

func (r RefreshConfig) Validate() error {
	if r.IntervalMinutes < 1 {
		return NewValidationError("refreshConfig.intervalMinutes must be at least 1")
	}
	return nil
}

// IsDue reports whether a refresh should run at now. A template that has
// never been refreshed is always due.
func (r RefreshConfig) IsDue(now time.Time) bool {
	if r.LastRefresh == nil {
		return true
	}
	next := r.LastRefresh.Add(time.Duration(r.IntervalMinutes) * time.Minute)
	return !now.Before(next)
}

// RecordSuccess stores a fresh render and clears the last error
func (m *TemplateMetadata) RecordSuccess(html string, at time.Time) {
	m.RenderedHTML = html
	m.RenderedAt = &at
	m.RefreshConfig.LastRefresh = &at
	m.RefreshConfig.LastError = ""
}

// RecordFailure keeps the previous render serving
func (m *TemplateMetadata) RecordFailure(err error, at time.Time) {
	m.RefreshConfig.LastRefresh = &at
	m.RefreshConfig.LastError = err.Error()
}

func (m *TemplateMetadata) Validate() error {
	if m.TemplateHTML == "" {
		return NewValidationError("templateHtml is required")
	}
	if err := m.DataSource.Validate(); err != nil {
		return err
	}
	return m.RefreshConfig.Validate()
}

// Clone returns a deep enough copy for read-modify-write cycles
func (m *TemplateMetadata) Clone() *TemplateMetadata {
	if m == nil {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		cp := *m
		return &cp
	}
	var out TemplateMetadata
	if err := json.Unmarshal(raw, &out); err != nil {
		cp := *m
		return &cp
	}
	return &out
}

func (m *TemplateMetadata) Scan(val interface{}) error {
	var data []byte

	if b, ok := val.([]byte); ok {
		// the driver reuses the buffer for the next row
		data = bytes.Clone(b)
	} else if s, ok := val.(string); ok {
		data = []byte(s)
	} else if val == nil {
		return nil
	}

	return json.Unmarshal(data, m)
}

func (m TemplateMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// ContentRepository is the persistence collaborator of the engine
type ContentRepository interface {
	// FindTemplates returns every active content record of type template
	FindTemplates(ctx context.Context) ([]*ContentRecord, error)

	// FindByID returns ErrNotFound when no record matches
	FindByID(ctx context.Context, id string) (*ContentRecord, error)

	Create(ctx context.Context, content *ContentRecord) error

	// Update writes name, status and metadata of an existing record
	Update(ctx context.Context, content *ContentRecord) error

	// UpdateMetadata replaces the metadata blob of a record
	UpdateMetadata(ctx context.Context, id string, metadata *TemplateMetadata) error
}
