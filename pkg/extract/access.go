package extract

import (
	"sort"
	"strings"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

const euRepoSemantics = "info:eu-repo/semantics/"

var knownAccessValues = map[string]cmm.DataAccess{
	"openAccess":       cmm.DataAccessOpen,
	"closedAccess":     cmm.DataAccessRestricted,
	"embargoedAccess":  cmm.DataAccessRestricted,
	"restrictedAccess": cmm.DataAccessRestricted,
}

// AccessRule maps one free-text access condition to a category.
type AccessRule struct {
	Content  string         `json:"content"`
	Category cmm.DataAccess `json:"category"`
}

// AccessMapping holds a repository's free-text access rules keyed by the
// source element shorthand ("conditions", "restrctn", ...).
type AccessMapping map[string][]AccessRule

// ClassifyAccessValue recognises the COAR/eu-repo access rights values.
func ClassifyAccessValue(value string) (cmm.DataAccess, bool) {
	value = strings.TrimPrefix(strings.TrimSpace(value), euRepoSemantics)
	category, ok := knownAccessValues[value]
	return category, ok
}

// DataAccessCategory classifies a study's data access. The first recognised
// access rights value wins. Otherwise the free texts found under each
// shorthand key are matched case-insensitively against the repository's
// mapping, keys taken in sorted order. Anything else is Uncategorized.
func DataAccessCategory(values []string, freeTexts map[string][]string, mapping AccessMapping) cmm.DataAccess {
	for _, value := range values {
		if category, ok := ClassifyAccessValue(value); ok {
			return category
		}
	}

	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, text := range freeTexts[key] {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			for _, rule := range mapping[key] {
				if strings.EqualFold(strings.TrimSpace(rule.Content), text) {
					return rule.Category
				}
			}
		}
	}
	return cmm.DataAccessUncategorized
}
