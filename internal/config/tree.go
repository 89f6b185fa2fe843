package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tree is the nested key/value view of a Config
type Tree map[string]interface{}

// Tree returns the configuration as a nested map keyed by the YAML field names
func (c *Config) Tree() (Tree, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	tree := Tree{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode config tree: %w", err)
	}
	return tree, nil
}

// Get returns the value at a dotted path such as "handlers.email.host"
func (c *Config) Get(path string) (interface{}, bool) {
	tree, err := c.Tree()
	if err != nil {
		return nil, false
	}
	return tree.Get(path)
}

// Set assigns value at a dotted path and decodes the result back into c.
// The value must be compatible with the field it lands in.
func (c *Config) Set(path string, value interface{}) error {
	tree, err := c.Tree()
	if err != nil {
		return err
	}
	if err := tree.Set(path, value); err != nil {
		return err
	}

	data, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to encode config tree: %w", err)
	}

	next := *c
	if err := yaml.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}

	// yaml drops keys that map to no field
	decoded, err := next.Tree()
	if err != nil {
		return err
	}
	if _, ok := decoded.Get(path); !ok {
		return fmt.Errorf("config path %s does not exist", path)
	}
	*c = next
	return nil
}

// Get walks the dotted path; empty segments are skipped
func (t Tree) Get(path string) (interface{}, bool) {
	var node interface{} = map[string]interface{}(t)
	for _, key := range splitPath(path) {
		m, ok := asMap(node)
		if !ok {
			return nil, false
		}
		if node, ok = m[key]; !ok {
			return nil, false
		}
	}
	return node, true
}

// Set assigns value at the dotted path, creating intermediate maps
func (t Tree) Set(path string, value interface{}) error {
	keys := splitPath(path)
	if len(keys) == 0 {
		return fmt.Errorf("empty config path")
	}

	node := map[string]interface{}(t)
	for _, key := range keys[:len(keys)-1] {
		next, ok := asMap(node[key])
		if !ok {
			if _, exists := node[key]; exists && node[key] != nil {
				return fmt.Errorf("config path %s: %s is not a section", path, key)
			}
			next = map[string]interface{}{}
			node[key] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = value
	return nil
}

func splitPath(path string) []string {
	var keys []string
	for _, k := range strings.Split(path, ".") {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Tree:
		return m, true
	}
	return nil, false
}
