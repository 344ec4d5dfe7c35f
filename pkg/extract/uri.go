package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ParseURI validates an absolute URI such as a study landing page or a
// holdings link.
func ParseURI(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty URI")
	}
	if strings.ContainsAny(value, " \t\r\n") {
		return "", fmt.Errorf("URI %q contains whitespace", value)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid URI %q: %w", value, err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("URI %q is not absolute", value)
	}
	return value, nil
}

// URIAttribute returns a strategy reading an absolute URI from the named
// attribute. Invalid URIs are reported and dropped.
func URIAttribute(name string) Strategy[string] {
	return func(node *xmlquery.Node, report Reporter) (string, bool) {
		return reportURI(Attr(node, name), Lang(node), report)
	}
}

// URIText reads an absolute URI from the element's text content.
func URIText(node *xmlquery.Node, report Reporter) (string, bool) {
	return reportURI(Text(node), Lang(node), report)
}

func reportURI(raw, language string, report Reporter) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	uri, err := ParseURI(raw)
	if err != nil {
		report.Report(language, "%v", err)
		return "", false
	}
	return uri, true
}
