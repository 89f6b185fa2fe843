package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Destination is a canonical address with an optional display name
type Destination struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Destinations is an insertion-ordered mapping from address to display name.
// It is stored as a JSON object whose key order matches insertion order.
type Destinations []Destination

// Len returns the number of destinations
func (d Destinations) Len() int {
	return len(d)
}

// Index returns the position of address or -1
func (d Destinations) Index(address string) int {
	for i, dest := range d {
		if dest.Address == address {
			return i
		}
	}
	return -1
}

// Contains reports whether address is present
func (d Destinations) Contains(address string) bool {
	return d.Index(address) >= 0
}

// Name returns the display name recorded for address
func (d Destinations) Name(address string) string {
	if i := d.Index(address); i >= 0 {
		return d[i].Name
	}
	return ""
}

// Addresses returns the addresses in insertion order
func (d Destinations) Addresses() []string {
	out := make([]string, len(d))
	for i, dest := range d {
		out[i] = dest.Address
	}
	return out
}

// Add inserts address, or updates the name of an existing entry when name is set.
// The position of an existing entry never changes.
func (d *Destinations) Add(address, name string) {
	if i := d.Index(address); i >= 0 {
		if name != "" {
			(*d)[i].Name = name
		}
		return
	}
	*d = append(*d, Destination{Address: address, Name: name})
}

// Append adds an entry without deduplication
func (d *Destinations) Append(address, name string) {
	*d = append(*d, Destination{Address: address, Name: name})
}

// Remove deletes address and reports whether it was present
func (d *Destinations) Remove(address string) bool {
	i := d.Index(address)
	if i < 0 {
		return false
	}
	*d = append((*d)[:i], (*d)[i+1:]...)
	return true
}

// Clone returns an independent copy
func (d Destinations) Clone() Destinations {
	if d == nil {
		return nil
	}
	out := make(Destinations, len(d))
	copy(out, d)
	return out
}

// MarshalJSON encodes the destinations as an ordered JSON object
func (d Destinations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, dest := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(dest.Address)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(dest.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an ordered JSON object, or an array of addresses
func (d *Destinations) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	out := Destinations{}

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*d = out
		return nil

	case data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("failed to decode destinations: %w", err)
		}
		for _, addr := range list {
			out.Append(addr, "")
		}
		*d = out
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode destinations: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("failed to decode destinations: unexpected token %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode destinations: %w", err)
		}
		key, _ := keyTok.(string)

		var name *string
		if err := dec.Decode(&name); err != nil {
			return fmt.Errorf("failed to decode destinations: %w", err)
		}

		entry := Destination{Address: key}
		if name != nil {
			entry.Name = *name
		}
		out = append(out, entry)
	}

	*d = out
	return nil
}

// Value implements driver.Valuer
func (d Destinations) Value() (driver.Value, error) {
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (d *Destinations) Scan(value interface{}) error {
	return scanJSON(value, d)
}

// FailedDestinations is the nullable variant used for rejected or unreachable destinations
type FailedDestinations Destinations

// Value implements driver.Valuer; an empty set is stored as NULL
func (f FailedDestinations) Value() (driver.Value, error) {
	if len(f) == 0 {
		return nil, nil
	}
	return Destinations(f).Value()
}

// Scan implements sql.Scanner
func (f *FailedDestinations) Scan(value interface{}) error {
	var d Destinations
	if err := scanJSON(value, &d); err != nil {
		return err
	}
	*f = FailedDestinations(d)
	return nil
}

// MarshalJSON encodes the set like Destinations
func (f FailedDestinations) MarshalJSON() ([]byte, error) {
	return Destinations(f).MarshalJSON()
}

// UnmarshalJSON decodes the set like Destinations
func (f *FailedDestinations) UnmarshalJSON(data []byte) error {
	var d Destinations
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = FailedDestinations(d)
	return nil
}

func scanJSON(value interface{}, target json.Unmarshaler) error {
	switch v := value.(type) {
	case nil:
		return target.UnmarshalJSON(nil)
	case []byte:
		return target.UnmarshalJSON(v)
	case string:
		return target.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}
