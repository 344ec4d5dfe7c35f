package extract

import (
	"github.com/antchfx/xmlquery"
	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

// RelatedPublication extracts a DDI-Codebook relPubl element. The title is
// the element's own text, then the bibliographic citation, then the
// citation title. Holdings come from ExtLink and citation holdings URIs.
// Invalid URIs and dates are reported and omitted; the element is dropped
// only when it has neither a title nor a holdings URI.
func RelatedPublication(node *xmlquery.Node, report Reporter) (cmm.RelatedPublication, bool) {
	language := Lang(node)
	citation := Child(node, "citation")

	title := OwnText(node)
	if title == "" {
		title = Text(Child(citation, "biblCit"))
	}
	if title == "" {
		title = Text(Path(citation, "titlStmt", "titl"))
	}

	var holdings []string
	seen := make(map[string]bool)
	addHolding := func(raw string) {
		if uri, ok := reportURI(raw, language, report); ok && !seen[uri] {
			seen[uri] = true
			holdings = append(holdings, uri)
		}
	}
	for _, link := range Children(node, "ExtLink") {
		addHolding(Attr(link, "URI"))
	}
	for _, holding := range Children(citation, "holdings") {
		addHolding(Attr(holding, "URI"))
	}

	if title == "" && len(holdings) == 0 {
		return cmm.RelatedPublication{}, false
	}

	publication := cmm.RelatedPublication{Title: title, HoldingsURIs: holdings}
	if distDate := Path(citation, "distStmt", "distDate"); distDate != nil {
		publication.PublicationDate = validDate(distDate, language, report)
	}
	return publication, true
}

// LifecycleRelatedPublication extracts a publication from a title String
// inside a DDI-Lifecycle OtherMaterial. URLs and the publication date are
// read from the enclosing OtherMaterial.
func LifecycleRelatedPublication(node *xmlquery.Node, report Reporter) (cmm.RelatedPublication, bool) {
	language := Lang(node)
	title := Text(node)
	material := Ancestor(node, "OtherMaterial")

	var holdings []string
	seen := make(map[string]bool)
	for _, name := range []string{"ExternalURLReference", "URLReference", "URI"} {
		for _, reference := range Children(material, name) {
			if uri, ok := reportURI(Text(reference), language, report); ok && !seen[uri] {
				seen[uri] = true
				holdings = append(holdings, uri)
			}
		}
	}

	if title == "" && len(holdings) == 0 {
		return cmm.RelatedPublication{}, false
	}

	publication := cmm.RelatedPublication{Title: title, HoldingsURIs: holdings}
	if date := Path(material, "Citation", "PublicationDate", "SimpleDate"); date != nil {
		publication.PublicationDate = validDate(date, language, report)
	}
	return publication, true
}

func validDate(node *xmlquery.Node, language string, report Reporter) string {
	value := cleanXMLText(Attr(node, "date"))
	if value == "" {
		value = Text(node)
	}
	if value == "" {
		return ""
	}
	if _, err := ParseDate(value); err != nil {
		report.Report(language, "publication date: %v", err)
		return ""
	}
	return value
}

// FileLanguages returns the sorted set of xml:lang values of the given
// file description elements.
func FileLanguages(nodes []*xmlquery.Node) []string {
	languages := make([]string, 0, len(nodes))
	for _, node := range nodes {
		languages = append(languages, Lang(node))
	}
	return cmm.SortedUnique(languages)
}
