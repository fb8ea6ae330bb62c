package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB stores any JSON-encodable value in a jsonb column
type JSONB struct {
	V any
}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j.V == nil {
		return nil, nil
	}
	return json.Marshal(j.V)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		j.V = nil
		return nil
	case []byte:
		return json.Unmarshal(v, &j.V)
	case string:
		return json.Unmarshal([]byte(v), &j.V)
	}
	return fmt.Errorf("unsupported jsonb source %T", value)
}

// MarshalJSON writes the wrapped value
func (j JSONB) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.V)
}

// Value implements driver.Valuer interface
func (u UnfilledFields) Value() (driver.Value, error) {
	if u == nil {
		return nil, nil
	}
	return json.Marshal(u)
}

// Scan implements sql.Scanner interface
func (u *UnfilledFields) Scan(value interface{}) error {
	if value == nil {
		*u = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), u)
	}
	return json.Unmarshal(bytes, u)
}
