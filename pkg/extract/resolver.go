package extract

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/leodido/go-urn"
)

// ResolutionStatus indicates the outcome of resolving a reference.
type ResolutionStatus string

const (
	ResolutionResolved ResolutionStatus = "resolved"
	ResolutionNotFound ResolutionStatus = "not_found"
	ResolutionExternal ResolutionStatus = "external"
	ResolutionEmpty    ResolutionStatus = "empty"
)

// ReferenceResolver resolves references against the identifiable elements
// of one document. It is read-only after construction and safe for
// concurrent use.
type ReferenceResolver struct {
	// Identifiable elements in document order
	elements []*xmlquery.Node
	byName   map[string][]*xmlquery.Node
}

// NewReferenceResolver indexes every element below root by local name.
// Reference elements themselves are never resolution targets.
func NewReferenceResolver(root *xmlquery.Node) *ReferenceResolver {
	r := &ReferenceResolver{byName: make(map[string][]*xmlquery.Node)}
	if root == nil {
		return r
	}

	var walk func(node *xmlquery.Node)
	walk = func(node *xmlquery.Node) {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			if !strings.HasSuffix(child.Data, "Reference") {
				r.elements = append(r.elements, child)
				r.byName[child.Data] = append(r.byName[child.Data], child)
			}
			walk(child)
		}
	}
	walk(root)
	return r
}

// Resolve finds the element a reference points to. The first match in
// document order wins. External references are never resolved.
func (r *ReferenceResolver) Resolve(ref Reference) (*xmlquery.Node, ResolutionStatus) {
	if ref.External {
		return nil, ResolutionExternal
	}
	if ref.IsZero() {
		return nil, ResolutionEmpty
	}

	candidates := r.elements
	if ref.TypeOfObject != "" {
		candidates = r.byName[ref.TypeOfObject]
	}

	target := parseURN(ref.URN)
	for _, candidate := range candidates {
		if matches(candidate, ref, target) {
			return candidate, ResolutionResolved
		}
	}
	return nil, ResolutionNotFound
}

// ResolveNode parses the reference element and resolves it.
func (r *ReferenceResolver) ResolveNode(node *xmlquery.Node) (*xmlquery.Node, ResolutionStatus) {
	return r.Resolve(ParseReference(node))
}

// ResolveAll resolves every reference element, keeping document order and
// skipping references that do not resolve.
func (r *ReferenceResolver) ResolveAll(nodes []*xmlquery.Node) []*xmlquery.Node {
	var resolved []*xmlquery.Node
	for _, node := range nodes {
		if target, status := r.ResolveNode(node); status == ResolutionResolved {
			resolved = append(resolved, target)
		}
	}
	return resolved
}

func matches(candidate *xmlquery.Node, ref Reference, target *urn.URN) bool {
	agency := Text(Child(candidate, "Agency"))
	id := Text(Child(candidate, "ID"))
	version := Text(Child(candidate, "Version"))

	if ref.URN != "" {
		candidateURN := Text(Child(candidate, "URN"))
		if candidateURN == "" {
			candidateURN = buildURN(agency, id, version)
		}
		if candidateURN == "" {
			return false
		}
		if parsed := parseURN(candidateURN); parsed != nil && target != nil {
			return parsed.Equal(target)
		}
		return strings.EqualFold(candidateURN, ref.URN)
	}

	if id == "" {
		return false
	}
	return agency == ref.Agency && id == ref.ID && version == ref.Version
}

func parseURN(value string) *urn.URN {
	if value == "" {
		return nil
	}
	parsed, ok := urn.Parse([]byte(value))
	if !ok {
		return nil
	}
	return parsed
}
