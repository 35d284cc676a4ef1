package service

import (
	"strconv"
	"strings"

	"github.com/vizora/signage/internal/domain"
)

// ExtractJSONPath walks decoded JSON along a dotted or bracketed path such
// as "$.data.items[0].name" or "$['weather']". A missing or null segment
// yields an empty object. Non-object results are returned as they are.
func ExtractJSONPath(data interface{}, path string) interface{} {
	segments, ok := parseJSONPath(path)
	if !ok {
		return map[string]interface{}{}
	}
	if len(segments) == 0 {
		return data
	}

	current := data
	for _, segment := range segments {
		if current == nil {
			return map[string]interface{}{}
		}
		next, found := step(current, segment)
		if !found {
			return map[string]interface{}{}
		}
		current = next
	}

	if current == nil {
		return map[string]interface{}{}
	}
	return current
}

func step(current interface{}, segment string) (interface{}, bool) {
	switch v := current.(type) {
	case map[string]interface{}:
		next, ok := v[segment]
		return next, ok
	case domain.MapOfAny:
		next, ok := v[segment]
		return next, ok
	case []interface{}:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= len(v) {
			return nil, false
		}
		return v[i], true
	}
	return nil, false
}

// parseJSONPath splits a path into keys and indices. The second result is
// false for malformed paths such as an unclosed bracket.
func parseJSONPath(path string) ([]string, bool) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")

	var segments []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		c := path[i]
		switch c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, false
			}
			inner := strings.TrimSpace(path[i+1 : i+end])
			if len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0] {
				inner = inner[1 : len(inner)-1]
			}
			if inner != "" {
				segments = append(segments, inner)
			}
			i += end
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return segments, true
}

// toRenderContext turns an extracted value into something a template can
// be rendered against
func toRenderContext(v interface{}) domain.MapOfAny {
	switch t := v.(type) {
	case nil:
		return domain.MapOfAny{}
	case domain.MapOfAny:
		return t
	case map[string]interface{}:
		return domain.MapOfAny(t)
	case []interface{}:
		return domain.MapOfAny{"items": t}
	}
	return domain.MapOfAny{"value": v}
}
