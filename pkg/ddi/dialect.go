// Package ddi holds the per-dialect XPath registries that tell the mapper
// where each CMM field lives in a DDI document.
//
// Four dialects are supported: DDI-Codebook 2.5, DDI-Lifecycle 3.2 and 3.3,
// and the namespaced Nesstar flavour of DDI-Codebook 1.2.2. A registry is
// chosen by the namespace of the document's metadata root. Registries are
// built once at package initialisation and never modified, so they are
// safe for concurrent use.
package ddi

import "errors"

// ErrUnsupportedDialect is returned for a namespace with no registry.
var ErrUnsupportedDialect = errors.New("unsupported DDI dialect")

// Dialect identifies one of the supported DDI schemas.
type Dialect int

const (
	Codebook25 Dialect = iota
	Lifecycle32
	Lifecycle33
	Nesstar
)

// Dialect namespaces.
const (
	NamespaceCodebook25  = "ddi:codebook:2_5"
	NamespaceLifecycle32 = "ddi:instance:3_2"
	NamespaceLifecycle33 = "ddi:instance:3_3"
	NamespaceNesstar     = "http://www.icpsr.umich.edu/DDI"
)

func (d Dialect) String() string {
	switch d {
	case Codebook25:
		return "DDI-Codebook 2.5"
	case Lifecycle32:
		return "DDI-Lifecycle 3.2"
	case Lifecycle33:
		return "DDI-Lifecycle 3.3"
	case Nesstar:
		return "Nesstar DDI 1.2.2"
	default:
		return "unknown"
	}
}

// Namespace returns the XML namespace of the dialect's metadata root.
func (d Dialect) Namespace() string {
	switch d {
	case Codebook25:
		return NamespaceCodebook25
	case Lifecycle32:
		return NamespaceLifecycle32
	case Lifecycle33:
		return NamespaceLifecycle33
	case Nesstar:
		return NamespaceNesstar
	default:
		return ""
	}
}

// IsLifecycle reports whether the dialect is a DDI-Lifecycle version.
func (d Dialect) IsLifecycle() bool {
	return d == Lifecycle32 || d == Lifecycle33
}

// prefixes returns the XPath prefix bindings used by the dialect's queries.
func (d Dialect) prefixes() map[string]string {
	switch d {
	case Codebook25, Nesstar:
		return map[string]string{"ddi": d.Namespace()}
	case Lifecycle32:
		return lifecyclePrefixes("3_2")
	case Lifecycle33:
		return lifecyclePrefixes("3_3")
	default:
		return nil
	}
}

func lifecyclePrefixes(version string) map[string]string {
	modules := map[string]string{
		"ddi": "instance",
		"s":   "studyunit",
		"r":   "reusable",
		"a":   "archive",
		"c":   "conceptualcomponent",
		"d":   "datacollection",
		"g":   "group",
		"pi":  "physicalinstance",
		"pd":  "physicaldataproduct",
	}
	prefixes := make(map[string]string, len(modules))
	for prefix, module := range modules {
		prefixes[prefix] = "ddi:" + module + ":" + version
	}
	return prefixes
}
