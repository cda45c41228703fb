package access

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRouteTable reads a YAML route table. Keys missing from the file keep
// their default values. An empty path returns the defaults.
func LoadRouteTable(path string) (RouteTable, error) {
	t := DefaultRouteTable()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RouteTable{}, fmt.Errorf("access: read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return RouteTable{}, fmt.Errorf("access: parse policy file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return RouteTable{}, err
	}
	return t, nil
}

// YAML renders the table in the policy file format.
func (t RouteTable) YAML() ([]byte, error) {
	return yaml.Marshal(t)
}
