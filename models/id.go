package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID - идентификатор сущности бэкенда. PHP-бэкенд отдаёт id то числом, то
// строкой, поэтому принимаем оба варианта и храним строку.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == "" }

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id %s: %w", data, err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// OptionalID разыменовывает указатель, nil превращается в пустой ID.
func OptionalID(id *ID) ID {
	if id == nil {
		return ""
	}
	return *id
}
