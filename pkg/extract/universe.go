package extract

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

// Clusion decides whether a universe element describes an included or an
// excluded population.
type Clusion func(node *xmlquery.Node) (inclusive bool, err error)

// CodebookClusion treats every universe element as an inclusion.
func CodebookClusion(*xmlquery.Node) (bool, error) {
	return true, nil
}

// LifecycleClusion reads isInclusive from the element or its enclosing
// Universe. Only the literal "false" marks an exclusion.
func LifecycleClusion(node *xmlquery.Node) (bool, error) {
	value := Attr(node, "isInclusive")
	if value == "" {
		value = Attr(Ancestor(node, "Universe"), "isInclusive")
	}
	return strings.TrimSpace(value) != "false", nil
}

// NesstarClusion parses the clusion attribute strictly: "I" is an
// inclusion, "E" an exclusion and a missing attribute defaults to "I".
// Any other value fails with ErrInvalidVocabularyValue.
func NesstarClusion(node *xmlquery.Node) (bool, error) {
	switch value := strings.TrimSpace(Attr(node, "clusion")); value {
	case "", "I":
		return true, nil
	case "E":
		return false, nil
	default:
		return false, fmt.Errorf("clusion %q: %w", value, ErrInvalidVocabularyValue)
	}
}

// CollectUniverse accumulates inclusion and exclusion texts per language.
// Repeated parts in one language are joined with a newline. A clusion
// error aborts the whole field.
func CollectUniverse(nodes []*xmlquery.Node, clusion Clusion) (map[string]cmm.Universe, error) {
	builder := cmm.NewValueBuilder[cmm.Universe](cmm.MergeUniverse)
	for _, node := range nodes {
		text := Text(node)
		if text == "" {
			continue
		}
		inclusive, err := clusion(node)
		if err != nil {
			return nil, err
		}
		if inclusive {
			builder.Add(Lang(node), cmm.Universe{Inclusion: text})
		} else {
			builder.Add(Lang(node), cmm.Universe{Exclusion: text})
		}
	}
	return builder.Build(), nil
}
