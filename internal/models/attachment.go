package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// Attachment is a file materialized for a message
type Attachment struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Type     string `json:"type"`
}

// Attachments is the JSON array column of a message
type Attachments []Attachment

// Dir returns the directory of the first attachment, or "" when there is none
func (a Attachments) Dir() string {
	if len(a) == 0 || a[0].Path == "" {
		return ""
	}
	return filepath.Dir(a[0].Path)
}

// Value implements driver.Valuer; an empty list is stored as NULL
func (a Attachments) Value() (driver.Value, error) {
	if len(a) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]Attachment(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *Attachments) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}

	if len(data) == 0 {
		*a = nil
		return nil
	}

	var list []Attachment
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to decode attachments: %w", err)
	}
	*a = list
	return nil
}
