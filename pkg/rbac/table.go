package rbac

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTable reads a permission table from a YAML (or JSON) file shaped as
//
//	admin:
//	  canBuyCredits: true
//	viewer:
//	  canViewBalance: true
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permission table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes a permission table document.
func ParseTable(data []byte) (Table, error) {
	var raw map[string]map[string]bool
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse permission table: %w", err)
	}

	t := make(Table, len(raw))
	for role, perms := range raw {
		if role == "" {
			return nil, fmt.Errorf("permission table: empty role name")
		}
		set := make(map[string]bool, len(perms))
		for key, granted := range perms {
			set[key] = granted
		}
		t[role] = set
	}
	return t, nil
}
