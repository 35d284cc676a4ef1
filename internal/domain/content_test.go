package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshConfig_IsDue(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	at := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	tests := []struct {
		name   string
		config RefreshConfig
		want   bool
	}{
		{"never refreshed", RefreshConfig{Enabled: true, IntervalMinutes: 15}, true},
		{"exactly one interval ago", RefreshConfig{Enabled: true, IntervalMinutes: 15, LastRefresh: at(15 * time.Minute)}, true},
		{"inside the interval", RefreshConfig{Enabled: true, IntervalMinutes: 15, LastRefresh: at(14 * time.Minute)}, false},
		{"long overdue", RefreshConfig{Enabled: true, IntervalMinutes: 60, LastRefresh: at(24 * time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.IsDue(now))
		})
	}
}

func TestRefreshConfig_Validate(t *testing.T) {
	assert.NoError(t, RefreshConfig{IntervalMinutes: 1}.Validate())
	assert.EqualError(t, RefreshConfig{IntervalMinutes: 0}.Validate(), "validation error: refreshConfig.intervalMinutes must be at least 1")
}

func TestTemplateMetadata_RecordOutcome(t *testing.T) {
	first := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	second := first.Add(15 * time.Minute)

	meta := &TemplateMetadata{TemplateHTML: "<h1>{{title}}</h1>"}
	meta.RecordSuccess("<h1>A</h1>", first)
	assert.Equal(t, "<h1>A</h1>", meta.RenderedHTML)
	assert.Equal(t, first, *meta.RenderedAt)
	assert.Equal(t, first, *meta.RefreshConfig.LastRefresh)

	meta.RecordFailure(errors.New("API Error"), second)
	assert.Equal(t, "<h1>A</h1>", meta.RenderedHTML)
	assert.Equal(t, first, *meta.RenderedAt)
	assert.Equal(t, second, *meta.RefreshConfig.LastRefresh)
	assert.Equal(t, "API Error", meta.RefreshConfig.LastError)

	meta.RecordSuccess("<h1>B</h1>", second)
	assert.Empty(t, meta.RefreshConfig.LastError)
}

func TestTemplateMetadata_Validate(t *testing.T) {
	valid := TemplateMetadata{
		TemplateHTML:  "<p>hi</p>",
		DataSource:    NewManualSource(nil),
		RefreshConfig: RefreshConfig{Enabled: true, IntervalMinutes: 15},
	}
	assert.NoError(t, valid.Validate())

	noHTML := valid
	noHTML.TemplateHTML = ""
	assert.EqualError(t, noHTML.Validate(), "validation error: templateHtml is required")

	badSource := valid
	badSource.DataSource = DataSourceConfig{Kind: DataSourceRestAPI}
	assert.Error(t, badSource.Validate())

	badInterval := valid
	badInterval.RefreshConfig.IntervalMinutes = -5
	assert.Error(t, badInterval.Validate())
}

func TestTemplateMetadata_Clone(t *testing.T) {
	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	meta := &TemplateMetadata{
		TemplateHTML:  "<h1>{{title}}</h1>",
		DataSource:    NewManualSource(MapOfAny{"title": "Menu"}),
		RefreshConfig: RefreshConfig{Enabled: true, IntervalMinutes: 15, LastRefresh: &ts},
		SampleData:    MapOfAny{"title": "Sample"},
		RenderedHTML:  "<h1>Menu</h1>",
		RenderedAt:    &ts,
	}

	clone := meta.Clone()
	require.NotSame(t, meta, clone)
	assert.Equal(t, meta.TemplateHTML, clone.TemplateHTML)
	assert.True(t, ts.Equal(*clone.RenderedAt))

	clone.SampleData["title"] = "Changed"
	clone.RecordFailure(errors.New("boom"), ts.Add(time.Hour))
	assert.Equal(t, "Sample", meta.SampleData["title"])
	assert.Equal(t, ts, *meta.RefreshConfig.LastRefresh)
	assert.Empty(t, meta.RefreshConfig.LastError)

	var nilMeta *TemplateMetadata
	assert.Nil(t, nilMeta.Clone())
}

func TestTemplateMetadata_ScanValue(t *testing.T) {
	meta := TemplateMetadata{
		TemplateHTML:  "<p>{{value}}</p>",
		DataSource:    NewRemoteSource(DataSourceJSONURL, "https://api.example.com/data.json"),
		RefreshConfig: RefreshConfig{Enabled: true, IntervalMinutes: 5},
	}

	value, err := meta.Value()
	require.NoError(t, err)
	raw, ok := value.([]byte)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"type":"json_url"`)
	assert.Contains(t, string(raw), `"intervalMinutes":5`)

	var scanned TemplateMetadata
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, DataSourceJSONURL, scanned.DataSource.Kind)
	assert.Equal(t, "https://api.example.com/data.json", scanned.DataSource.Remote.URL)

	var fromString TemplateMetadata
	require.NoError(t, fromString.Scan(string(raw)))
	assert.Equal(t, meta.TemplateHTML, fromString.TemplateHTML)

	var empty TemplateMetadata
	assert.NoError(t, empty.Scan(nil))
	assert.Error(t, empty.Scan([]byte("{not json")))
}

func TestContentRecord_Validate(t *testing.T) {
	valid := ContentRecord{
		ID:       "t1",
		Name:     "Lobby board",
		Type:     ContentTypeTemplate,
		Status:   ContentStatusActive,
		Metadata: &TemplateMetadata{TemplateHTML: "<p>x</p>"},
	}
	assert.NoError(t, valid.Validate())
	assert.True(t, valid.IsTemplate())

	tests := []struct {
		name   string
		mutate func(c *ContentRecord)
	}{
		{"missing id", func(c *ContentRecord) { c.ID = "" }},
		{"missing name", func(c *ContentRecord) { c.Name = "" }},
		{"unknown type", func(c *ContentRecord) { c.Type = "slideshow" }},
		{"unknown status", func(c *ContentRecord) { c.Status = "deleted" }},
		{"template without metadata", func(c *ContentRecord) { c.Metadata = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := valid
			tt.mutate(&record)
			assert.Error(t, record.Validate())
		})
	}

	image := ContentRecord{ID: "i1", Name: "Logo", Type: ContentTypeImage, Status: ContentStatusActive}
	assert.NoError(t, image.Validate())
	assert.False(t, image.IsTemplate())
}
