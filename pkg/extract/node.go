// Package extract provides the element extraction strategies that turn DDI
// XML elements into CMM values, and the reference resolver for DDI-Lifecycle
// cross-references.
//
// Strategies are pure functions over parsed xmlquery nodes. Problems that do
// not invalidate the whole element (an unparseable date, an invalid URI) are
// reported through a Reporter and the affected piece is omitted.
package extract

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

const xmlNamespaceURI = "http://www.w3.org/XML/1998/namespace"

// Lang returns the xml:lang attribute of the node, or the empty language.
func Lang(node *xmlquery.Node) string {
	if node == nil {
		return ""
	}
	for _, attr := range node.Attr {
		if attr.Name.Local == "lang" && (attr.Name.Space == "xml" || attr.Name.Space == xmlNamespaceURI) {
			return strings.TrimSpace(attr.Value)
		}
	}
	return ""
}

// Attr returns the value of the unprefixed attribute with the given name.
func Attr(node *xmlquery.Node, name string) string {
	if node == nil {
		return ""
	}
	for _, attr := range node.Attr {
		if attr.Name.Local == name && attr.Name.Space == "" {
			return attr.Value
		}
	}
	return ""
}

// Text returns the whitespace-normalised text content of the node and all
// of its descendants.
func Text(node *xmlquery.Node) string {
	if node == nil {
		return ""
	}
	return cleanXMLText(node.InnerText())
}

// OwnText returns the whitespace-normalised text of the node's direct text
// children, ignoring text inside child elements.
func OwnText(node *xmlquery.Node) string {
	if node == nil {
		return ""
	}
	var builder strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.TextNode || child.Type == xmlquery.CharDataNode {
			builder.WriteString(child.Data)
			builder.WriteString(" ")
		}
	}
	return cleanXMLText(builder.String())
}

// Child returns the first child element with the given local name.
func Child(node *xmlquery.Node, localName string) *xmlquery.Node {
	if node == nil {
		return nil
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == localName {
			return child
		}
	}
	return nil
}

// Children returns all child elements with the given local name in
// document order.
func Children(node *xmlquery.Node, localName string) []*xmlquery.Node {
	if node == nil {
		return nil
	}
	var children []*xmlquery.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == localName {
			children = append(children, child)
		}
	}
	return children
}

// Path follows a chain of child local names from node and returns the first
// element reached, or nil.
func Path(node *xmlquery.Node, localNames ...string) *xmlquery.Node {
	current := node
	for _, localName := range localNames {
		current = Child(current, localName)
		if current == nil {
			return nil
		}
	}
	return current
}

// Ancestor returns the nearest ancestor element with the given local name.
func Ancestor(node *xmlquery.Node, localName string) *xmlquery.Node {
	if node == nil {
		return nil
	}
	for parent := node.Parent; parent != nil; parent = parent.Parent {
		if parent.Type == xmlquery.ElementNode && parent.Data == localName {
			return parent
		}
	}
	return nil
}

// cleanXMLText cleans up text extracted from XML, normalizing whitespace.
func cleanXMLText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
