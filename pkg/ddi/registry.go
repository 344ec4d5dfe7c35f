package ddi

import (
	"fmt"
	"sort"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/coolbeans/ddiharvest/pkg/cmm"
	"github.com/coolbeans/ddiharvest/pkg/extract"
)

// Query locates one field in a document.
type Query struct {
	// Paths are absolute XPaths tried in priority order; their matches are
	// concatenated.
	Paths []string
	// Reference selects pointer elements that are resolved when Paths
	// match nothing.
	Reference string
	// Within is applied to each resolved element to reach the value nodes.
	Within string
}

type compiledQuery struct {
	paths     []*xpath.Expr
	reference *xpath.Expr
	within    *xpath.Expr
}

// Strategies binds the dialect-specific extraction strategies.
type Strategies struct {
	Vocab              extract.VocabAttributeNames
	Creator            extract.Strategy[cmm.Creator]
	Pid                extract.Strategy[cmm.Pid]
	Country            extract.Strategy[cmm.Country]
	Clusion            extract.Clusion
	RelatedPublication extract.Strategy[cmm.RelatedPublication]
	Series             extract.Strategy[cmm.Series]
	Funding            extract.Strategy[cmm.Funding]
	CollectionFreeText extract.Strategy[cmm.DataCollectionFreeText]
	CollectionPeriod   func(nodes []*xmlquery.Node, report extract.Reporter) cmm.DataCollectionPeriod
	URL                extract.Strategy[string]
}

// Registry is the immutable field table of one dialect.
type Registry struct {
	dialect       Dialect
	queries       map[Field]compiledQuery
	strategies    Strategies
	accessSources map[string]Field
}

var registries = make(map[string]*Registry)

func init() {
	codebook := codebookQueries()
	lifecycle := lifecycleQueries()

	register(Codebook25, codebook, codebookStrategies(), codebookAccessSources())
	register(Nesstar, override(codebook, nesstarOverrides()), nesstarStrategies(), codebookAccessSources())
	register(Lifecycle32, lifecycle, lifecycleStrategies(), lifecycleAccessSources())
	register(Lifecycle33, override(lifecycle, lifecycle33Overrides()), lifecycleStrategies(), lifecycleAccessSources())
}

func register(dialect Dialect, queries map[Field]Query, strategies Strategies, accessSources map[string]Field) {
	registry, err := newRegistry(dialect, queries, strategies, accessSources)
	if err != nil {
		panic(err)
	}
	registries[dialect.Namespace()] = registry
}

func newRegistry(dialect Dialect, queries map[Field]Query, strategies Strategies, accessSources map[string]Field) (*Registry, error) {
	prefixes := dialect.prefixes()
	compiled := make(map[Field]compiledQuery, len(queries))
	for field, query := range queries {
		var cq compiledQuery
		for _, path := range query.Paths {
			expr, err := xpath.CompileWithNS(path, prefixes)
			if err != nil {
				return nil, fmt.Errorf("failed to compile %s path for %s %q: %w", dialect, field, path, err)
			}
			cq.paths = append(cq.paths, expr)
		}
		if query.Reference != "" {
			expr, err := xpath.CompileWithNS(query.Reference, prefixes)
			if err != nil {
				return nil, fmt.Errorf("failed to compile %s reference for %s %q: %w", dialect, field, query.Reference, err)
			}
			cq.reference = expr
		}
		if query.Within != "" {
			expr, err := xpath.CompileWithNS(query.Within, prefixes)
			if err != nil {
				return nil, fmt.Errorf("failed to compile %s within path for %s %q: %w", dialect, field, query.Within, err)
			}
			cq.within = expr
		}
		compiled[field] = cq
	}
	return &Registry{
		dialect:       dialect,
		queries:       compiled,
		strategies:    strategies,
		accessSources: accessSources,
	}, nil
}

// override copies base and replaces the given fields.
func override(base, overrides map[Field]Query) map[Field]Query {
	merged := make(map[Field]Query, len(base))
	for field, query := range base {
		merged[field] = query
	}
	for field, query := range overrides {
		merged[field] = query
	}
	return merged
}

// GetRegistry returns the registry for a metadata root namespace.
func GetRegistry(namespace string) (*Registry, error) {
	registry, ok := registries[namespace]
	if !ok {
		return nil, fmt.Errorf("namespace %q: %w", namespace, ErrUnsupportedDialect)
	}
	return registry, nil
}

// Namespaces lists the supported namespaces in sorted order.
func Namespaces() []string {
	namespaces := make([]string, 0, len(registries))
	for namespace := range registries {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)
	return namespaces
}

// Dialect returns the registry's dialect.
func (r *Registry) Dialect() Dialect {
	return r.dialect
}

// Strategies returns the dialect's strategy bindings.
func (r *Registry) Strategies() Strategies {
	return r.strategies
}

// Has reports whether the dialect defines a query for field.
func (r *Registry) Has(field Field) bool {
	_, ok := r.queries[field]
	return ok
}

// AccessMappingSources maps the shorthand keys used in access mapping
// tables to the fields holding the matching free texts.
func (r *Registry) AccessMappingSources() map[string]Field {
	sources := make(map[string]Field, len(r.accessSources))
	for key, field := range r.accessSources {
		sources[key] = field
	}
	return sources
}

// Select returns the nodes holding field in document order. Direct paths
// are evaluated first; the reference path is followed only when they match
// nothing. Unresolvable references are skipped. A field the dialect does
// not define yields nil. context may be any node of the document; the
// absolute paths are evaluated from its owner document so that they also
// match the metadata root element itself.
func (r *Registry) Select(context *xmlquery.Node, resolver *extract.ReferenceResolver, field Field) []*xmlquery.Node {
	query, ok := r.queries[field]
	if !ok || context == nil {
		return nil
	}
	doc := ownerDocument(context)

	var nodes []*xmlquery.Node
	for _, expr := range query.paths {
		nodes = append(nodes, xmlquery.QuerySelectorAll(doc, expr)...)
	}
	if len(nodes) > 0 || query.reference == nil || resolver == nil {
		return nodes
	}

	targets := resolver.ResolveAll(xmlquery.QuerySelectorAll(doc, query.reference))
	if query.within == nil {
		return targets
	}
	for _, target := range targets {
		nodes = append(nodes, xmlquery.QuerySelectorAll(target, query.within)...)
	}
	return nodes
}

// ownerDocument climbs to the top of the tree holding node.
func ownerDocument(node *xmlquery.Node) *xmlquery.Node {
	for node.Parent != nil {
		node = node.Parent
	}
	return node
}
