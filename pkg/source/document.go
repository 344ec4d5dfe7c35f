// Package source turns harvested payloads into parsed documents and fetches
// them from OAI-PMH endpoints or local directories.
package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/coolbeans/ddiharvest/pkg/ddi"
)

// OAINamespace is the OAI-PMH 2.0 envelope namespace.
const OAINamespace = "http://www.openarchives.org/OAI/2.0/"

// Header is the OAI-PMH record header.
type Header struct {
	Identifier string   `json:"identifier"`
	Datestamp  string   `json:"datestamp,omitempty"`
	Deleted    bool     `json:"deleted,omitempty"`
	SetSpecs   []string `json:"set_specs,omitempty"`
}

// Document is a parsed source record.
type Document struct {
	// Node is the parsed document including any OAI-PMH envelope.
	Node *xmlquery.Node
	// Root is the metadata root element. It is nil for deleted records.
	Root   *xmlquery.Node
	Header Header
}

// MalformedDocumentError is returned when a payload cannot be parsed or has
// no metadata root.
type MalformedDocumentError struct {
	Reason string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed document: %s: %v", e.Reason, e.Err)
	}
	return "malformed document: " + e.Reason
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// ParseDocument parses a record payload and returns it with the namespace
// of its metadata root. Payloads may be a bare DDI document, an OAI-PMH
// record element or a full OAI-PMH response. A Nesstar codeBook without a
// namespace is placed in the Nesstar namespace. Deleted records parse
// successfully with a nil Root and an empty namespace.
func ParseDocument(data []byte) (*Document, string, error) {
	node, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, "", &MalformedDocumentError{Reason: "invalid XML", Err: err}
	}

	top := firstElement(node)
	if top == nil {
		return nil, "", &MalformedDocumentError{Reason: "no root element"}
	}

	doc := &Document{Node: node}
	record := top
	if top.Data == "OAI-PMH" {
		if oaiErr := envelopeError(top); oaiErr != nil {
			return nil, "", oaiErr
		}
		record = findElement(top, "record")
		if record == nil {
			return nil, "", &MalformedDocumentError{Reason: "OAI-PMH response without a record"}
		}
	}

	if record.Data == "record" && record.NamespaceURI == OAINamespace {
		doc.Header = parseHeader(childElement(record, "header"))
		doc.Root = firstElement(childElement(record, "metadata"))
	} else {
		doc.Root = record
	}

	if doc.Root == nil {
		if doc.Header.Deleted {
			return doc, "", nil
		}
		return nil, "", &MalformedDocumentError{Reason: "record without metadata"}
	}

	if doc.Root.Data == "codeBook" && doc.Root.NamespaceURI == "" {
		normaliseNamespace(doc.Root, ddi.NamespaceNesstar)
	}
	return doc, doc.Root.NamespaceURI, nil
}

// HeaderOf returns the OAI-PMH header of a document, or the zero header for
// documents harvested without an envelope.
func HeaderOf(doc *Document) Header {
	if doc == nil {
		return Header{}
	}
	return doc.Header
}

func parseHeader(header *xmlquery.Node) Header {
	if header == nil {
		return Header{}
	}
	var parsed Header
	for child := header.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		value := strings.TrimSpace(child.InnerText())
		switch child.Data {
		case "identifier":
			parsed.Identifier = value
		case "datestamp":
			parsed.Datestamp = value
		case "setSpec":
			parsed.SetSpecs = append(parsed.SetSpecs, value)
		}
	}
	parsed.Deleted = header.SelectAttr("status") == "deleted"
	return parsed
}

func envelopeError(envelope *xmlquery.Node) error {
	errNode := childElement(envelope, "error")
	if errNode == nil {
		return nil
	}
	return &OAIError{
		Code:    errNode.SelectAttr("code"),
		Message: strings.TrimSpace(errNode.InnerText()),
	}
}

// normaliseNamespace moves every element without a namespace below root
// into namespace.
func normaliseNamespace(root *xmlquery.Node, namespace string) {
	if root.Type == xmlquery.ElementNode && root.NamespaceURI == "" {
		root.NamespaceURI = namespace
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		normaliseNamespace(child, namespace)
	}
}

func firstElement(node *xmlquery.Node) *xmlquery.Node {
	if node == nil {
		return nil
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}

func childElement(node *xmlquery.Node, localName string) *xmlquery.Node {
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

func findElement(node *xmlquery.Node, localName string) *xmlquery.Node {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		if child.Data == localName {
			return child
		}
		if found := findElement(child, localName); found != nil {
			return found
		}
	}
	return nil
}
