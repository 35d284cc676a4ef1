package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
)

// MapOfAny is a JSON object, used for render contexts and persisted as JSONB
type MapOfAny map[string]any

// Scan implements the sql.Scanner interface
func (m *MapOfAny) Scan(val interface{}) error {
	var data []byte

	if b, ok := val.([]byte); ok {
		data = bytes.Clone(b)
	} else if s, ok := val.(string); ok {
		data = []byte(s)
	} else if val == nil {
		return nil
	}

	return json.Unmarshal(data, m)
}

// Value implements the driver.Valuer interface
func (m MapOfAny) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// IsEmpty reports a missing or empty object, the fetcher's "no data" value
func (m MapOfAny) IsEmpty() bool {
	return len(m) == 0
}
