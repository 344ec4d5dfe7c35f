package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
	"github.com/coolbeans/ddiharvest/pkg/extract"
)

//go:embed access_mappings.json
var bundledAccessMappings []byte

// AccessMappings holds the free-text access rules of every repository,
// keyed by repository code.
type AccessMappings map[string]extract.AccessMapping

// For returns the mapping of one repository, or nil.
func (m AccessMappings) For(code string) extract.AccessMapping {
	return m[code]
}

// LoadAccessMappings reads the mapping table from path, or the bundled
// table when path is empty.
func LoadAccessMappings(path string) (AccessMappings, error) {
	data := bundledAccessMappings
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading access mappings: %w", err)
		}
	}
	return ParseAccessMappings(data)
}

// ParseAccessMappings decodes and validates a mapping table.
func ParseAccessMappings(data []byte) (AccessMappings, error) {
	var mappings AccessMappings
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("parsing access mappings: %w", err)
	}
	for code, mapping := range mappings {
		for key, rules := range mapping {
			for _, rule := range rules {
				switch rule.Category {
				case cmm.DataAccessOpen, cmm.DataAccessRestricted, cmm.DataAccessUncategorized:
				default:
					return nil, fmt.Errorf("repository %s, key %s: unknown category %q", code, key, rule.Category)
				}
			}
		}
	}
	return mappings, nil
}
