package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/vizora/signage/internal/domain"
)

// WidgetRegistry maps widget types to their data sources. It is filled at
// construction and read only afterwards.
type WidgetRegistry struct {
	widgets map[string]domain.WidgetDataSource
}

func NewWidgetRegistry(widgets ...domain.WidgetDataSource) *WidgetRegistry {
	r := &WidgetRegistry{widgets: make(map[string]domain.WidgetDataSource, len(widgets))}
	for _, w := range widgets {
		r.widgets[w.Type()] = w
	}
	return r
}

func (r *WidgetRegistry) Get(widgetType string) (domain.WidgetDataSource, bool) {
	w, ok := r.widgets[widgetType]
	return w, ok
}

func (r *WidgetRegistry) Types() []string {
	types := make([]string, 0, len(r.widgets))
	for t := range r.widgets {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Fetch runs the widget's data source, a nil result becomes an empty map
func (r *WidgetRegistry) Fetch(ctx context.Context, widgetType string, config domain.MapOfAny) (domain.MapOfAny, error) {
	w, ok := r.Get(widgetType)
	if !ok {
		return nil, &DataSourceConfigError{Message: fmt.Sprintf("Unknown widget type: %s", widgetType)}
	}
	if config == nil {
		config = domain.MapOfAny{}
	}

	data, err := w.FetchData(ctx, config)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return domain.MapOfAny{}, nil
	}
	return data, nil
}
