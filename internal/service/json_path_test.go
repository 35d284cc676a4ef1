package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizora/signage/internal/domain"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestExtractJSONPath(t *testing.T) {
	data := decode(t, `{
		"data": {
			"current": {"temp": 21.5, "city": "Lisbon"},
			"items": [{"name": "first"}, {"name": "second"}, {"name": "third"}],
			"empty": null
		},
		"a.b": {"c": 1}
	}`)

	tests := []struct {
		name     string
		path     string
		expected interface{}
	}{
		{"dotted with root", "$.data.current", map[string]interface{}{"temp": 21.5, "city": "Lisbon"}},
		{"dotted without root", "data.current.city", "Lisbon"},
		{"array index", "data.items[1].name", "second"},
		{"array index with root", "$.data.items[2]", map[string]interface{}{"name": "third"}},
		{"bracket key", "$['data']['current']['temp']", 21.5},
		{"double quoted bracket key", `$["a.b"].c`, float64(1)},
		{"missing key", "$.data.forecast", map[string]interface{}{}},
		{"null value", "$.data.empty", map[string]interface{}{}},
		{"through null", "$.data.empty.deeper", map[string]interface{}{}},
		{"index out of range", "$.data.items[9]", map[string]interface{}{}},
		{"index on object", "$.data.current[0]", map[string]interface{}{}},
		{"key on scalar", "$.data.current.city.length", map[string]interface{}{}},
		{"unclosed bracket", "$.data.items[0", map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJSONPath(data, tt.path))
		})
	}
}

func TestExtractJSONPath_EmptyPathReturnsInput(t *testing.T) {
	data := decode(t, `[1, 2, 3]`)

	assert.Equal(t, data, ExtractJSONPath(data, ""))
	assert.Equal(t, data, ExtractJSONPath(data, "$"))
	assert.Equal(t, data, ExtractJSONPath(data, "$."))
}

func TestExtractJSONPath_ArrayResult(t *testing.T) {
	data := decode(t, `{"list": ["a", "b"]}`)

	assert.Equal(t, []interface{}{"a", "b"}, ExtractJSONPath(data, "$.list"))
}

func TestExtractJSONPath_MapOfAny(t *testing.T) {
	data := domain.MapOfAny{"weather": map[string]interface{}{"code": float64(800)}}

	assert.Equal(t, float64(800), ExtractJSONPath(data, "weather.code"))
}

func TestToRenderContext(t *testing.T) {
	assert.Equal(t, domain.MapOfAny{}, toRenderContext(nil))
	assert.Equal(t, domain.MapOfAny{"a": 1}, toRenderContext(map[string]interface{}{"a": 1}))
	assert.Equal(t, domain.MapOfAny{"items": []interface{}{1.0, 2.0}}, toRenderContext([]interface{}{1.0, 2.0}))
	assert.Equal(t, domain.MapOfAny{"value": "sunny"}, toRenderContext("sunny"))
	assert.Equal(t, domain.MapOfAny{"value": 42.0}, toRenderContext(42.0))
}
