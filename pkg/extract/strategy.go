package extract

import (
	"github.com/antchfx/xmlquery"
	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

// Strategy turns one element into a typed value. It returns false when the
// element yields nothing usable, in which case it is dropped.
type Strategy[T any] func(node *xmlquery.Node, report Reporter) (T, bool)

// Collect applies strategy to every node and groups the results by the
// node's language, preserving document order within each language.
func Collect[T any](nodes []*xmlquery.Node, strategy Strategy[T], report Reporter) map[string][]T {
	builder := cmm.NewListBuilder[T]()
	for _, node := range nodes {
		if value, ok := strategy(node, report); ok {
			builder.Add(Lang(node), value)
		}
	}
	return builder.Build()
}

// CollectValue applies strategy to every node and keeps one value per
// language, combining repeated values with merge.
func CollectValue[T any](nodes []*xmlquery.Node, strategy Strategy[T], merge cmm.Merge[T], report Reporter) map[string]T {
	builder := cmm.NewValueBuilder(merge)
	for _, node := range nodes {
		if value, ok := strategy(node, report); ok {
			builder.Add(Lang(node), value)
		}
	}
	return builder.Build()
}

// First returns the first value produced by strategy over nodes, ignoring
// language.
func First[T any](nodes []*xmlquery.Node, strategy Strategy[T], report Reporter) (T, bool) {
	for _, node := range nodes {
		if value, ok := strategy(node, report); ok {
			return value, true
		}
	}
	var zero T
	return zero, false
}

// TextValue extracts the node's full text content. Blank text is dropped.
func TextValue(node *xmlquery.Node, _ Reporter) (string, bool) {
	text := Text(node)
	return text, text != ""
}

// OwnTextValue extracts the node's own text, excluding child elements.
// Blank text is dropped.
func OwnTextValue(node *xmlquery.Node, _ Reporter) (string, bool) {
	text := OwnText(node)
	return text, text != ""
}

// LanguageValue extracts the node's xml:lang value.
func LanguageValue(node *xmlquery.Node, _ Reporter) (string, bool) {
	language := Lang(node)
	return language, language != ""
}
