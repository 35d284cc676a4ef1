package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
)

type DataSourceKind string

const (
	DataSourceManual  DataSourceKind = "manual"
	DataSourceRestAPI DataSourceKind = "rest_api"
	DataSourceJSONURL DataSourceKind = "json_url"
	DataSourceWidget  DataSourceKind = "widget"
)

// DataSourceConfig is a tagged union: exactly one payload matching Kind is set.
// The zero value is an empty manual source.
type DataSourceConfig struct {
	Kind   DataSourceKind
	Manual *ManualSource
	Remote *RemoteSource
	Widget *WidgetSource
}

type ManualSource struct {
	Data MapOfAny
}

type RemoteSource struct {
	URL      string
	Method   string
	Headers  map[string]string
	JSONPath string
}

type WidgetSource struct {
	WidgetType string
	Config     MapOfAny
}

func NewManualSource(data MapOfAny) DataSourceConfig {
	return DataSourceConfig{Kind: DataSourceManual, Manual: &ManualSource{Data: data}}
}

func NewRemoteSource(kind DataSourceKind, url string) DataSourceConfig {
	return DataSourceConfig{Kind: kind, Remote: &RemoteSource{URL: url}}
}

func NewWidgetSource(widgetType string, config MapOfAny) DataSourceConfig {
	return DataSourceConfig{Kind: DataSourceWidget, Widget: &WidgetSource{WidgetType: widgetType, Config: config}}
}

func (k DataSourceKind) IsRemote() bool {
	return k == DataSourceRestAPI || k == DataSourceJSONURL
}

// Validate rejects configurations that could only fail at refresh time
func (d DataSourceConfig) Validate() error {
	switch d.Kind {
	case "", DataSourceManual:
		return nil
	case DataSourceRestAPI, DataSourceJSONURL:
		if d.Remote == nil || strings.TrimSpace(d.Remote.URL) == "" {
			return NewValidationError(fmt.Sprintf("dataSource.url is required for %s sources", d.Kind))
		}
		if !govalidator.IsRequestURL(d.Remote.URL) {
			return NewValidationError(fmt.Sprintf("dataSource.url is not a valid URL: %s", d.Remote.URL))
		}
		switch strings.ToUpper(d.Remote.Method) {
		case "", http.MethodGet, http.MethodPost:
		default:
			return NewValidationError(fmt.Sprintf("dataSource.method %s is not supported", d.Remote.Method))
		}
		return nil
	case DataSourceWidget:
		if d.Widget == nil || d.Widget.WidgetType == "" {
			return NewValidationError("dataSource.widgetType is required for widget sources")
		}
		return nil
	default:
		return NewValidationError(fmt.Sprintf("unknown dataSource.type %q", d.Kind))
	}
}

// dataSourceJSON is the flat persisted shape
type dataSourceJSON struct {
	Type         DataSourceKind    `json:"type"`
	ManualData   MapOfAny          `json:"manualData,omitempty"`
	URL          string            `json:"url,omitempty"`
	Method       string            `json:"method,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	JSONPath     string            `json:"jsonPath,omitempty"`
	WidgetType   string            `json:"widgetType,omitempty"`
	WidgetConfig MapOfAny          `json:"widgetConfig,omitempty"`
}

func (d DataSourceConfig) MarshalJSON() ([]byte, error) {
	out := dataSourceJSON{Type: d.Kind}
	if out.Type == "" {
		out.Type = DataSourceManual
	}
	switch {
	case d.Manual != nil:
		out.ManualData = d.Manual.Data
	case d.Remote != nil:
		out.URL = d.Remote.URL
		out.Method = d.Remote.Method
		out.Headers = d.Remote.Headers
		out.JSONPath = d.Remote.JSONPath
	case d.Widget != nil:
		out.WidgetType = d.Widget.WidgetType
		out.WidgetConfig = d.Widget.Config
	}
	return json.Marshal(out)
}

func (d *DataSourceConfig) UnmarshalJSON(data []byte) error {
	var in dataSourceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = DataSourceConfig{Kind: in.Type}
	switch in.Type {
	case "", DataSourceManual:
		d.Kind = DataSourceManual
		d.Manual = &ManualSource{Data: in.ManualData}
	case DataSourceRestAPI, DataSourceJSONURL:
		d.Remote = &RemoteSource{
			URL:      in.URL,
			Method:   in.Method,
			Headers:  in.Headers,
			JSONPath: in.JSONPath,
		}
	case DataSourceWidget:
		d.Widget = &WidgetSource{WidgetType: in.WidgetType, Config: in.WidgetConfig}
	}
	// unknown kinds are kept so Validate can report them
	return nil
}
