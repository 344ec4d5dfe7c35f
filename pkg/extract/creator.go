package extract

import (
	"github.com/antchfx/xmlquery"
	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

// Creator extracts a DDI-Codebook AuthEnty. Elements without a name are
// dropped. An ExtLink child supplies an external identifier such as an
// ORCID.
func Creator(node *xmlquery.Node, report Reporter) (cmm.Creator, bool) {
	name := OwnText(node)
	if name == "" {
		return cmm.Creator{}, false
	}
	creator := cmm.Creator{
		Name:        name,
		Affiliation: cleanXMLText(Attr(node, "affiliation")),
	}
	if link := Child(node, "ExtLink"); link != nil {
		identifier := &cmm.Identifier{
			Type: Attr(link, "title"),
			ID:   Text(link),
		}
		if uri, ok := reportURI(Attr(link, "URI"), Lang(node), report); ok {
			identifier.URI = uri
		}
		if identifier.ID != "" || identifier.URI != "" {
			creator.Identifier = identifier
		}
	}
	return creator, true
}

// LifecycleCreator extracts a creator name from a DDI-Lifecycle String
// element. The affiliation is read from the enclosing Creator element when
// there is one; names reached through a resolved Organization or Individual
// reference have none.
func LifecycleCreator(node *xmlquery.Node, _ Reporter) (cmm.Creator, bool) {
	name := Text(node)
	if name == "" {
		return cmm.Creator{}, false
	}
	creator := cmm.Creator{Name: name}
	if enclosing := Ancestor(node, "Creator"); enclosing != nil {
		creator.Affiliation = cleanXMLText(Attr(enclosing, "affiliation"))
	}
	return creator, true
}

// Publisher extracts a producer or distributor with its abbreviation.
func Publisher(node *xmlquery.Node, _ Reporter) (cmm.Publisher, bool) {
	name := Text(node)
	if name == "" {
		return cmm.Publisher{}, false
	}
	return cmm.Publisher{
		Abbreviation: cleanXMLText(Attr(node, "abbr")),
		Name:         name,
	}, true
}

// Pid extracts a DDI-Codebook IDNo as a persistent identifier.
func Pid(node *xmlquery.Node, _ Reporter) (cmm.Pid, bool) {
	pid := Text(node)
	if pid == "" {
		return cmm.Pid{}, false
	}
	return cmm.Pid{Agency: cleanXMLText(Attr(node, "agency")), Pid: pid}, true
}

// LifecyclePid extracts a DDI-Lifecycle InternationalIdentifier.
func LifecyclePid(node *xmlquery.Node, _ Reporter) (cmm.Pid, bool) {
	pid := Text(Child(node, "IdentifierContent"))
	if pid == "" {
		return cmm.Pid{}, false
	}
	return cmm.Pid{Agency: Text(Child(node, "ManagingAgency")), Pid: pid}, true
}

// Funding extracts a grant number (grantNo) or a funding agency (fundAg).
func Funding(node *xmlquery.Node, _ Reporter) (cmm.Funding, bool) {
	text := Text(node)
	if text == "" {
		return cmm.Funding{}, false
	}
	switch node.Data {
	case "grantNo", "GrantNumber":
		funding := cmm.Funding{GrantNumber: text, Agency: cleanXMLText(Attr(node, "agency"))}
		return funding, true
	default:
		return cmm.Funding{Agency: text}, true
	}
}

// Series extracts a DDI-Codebook serStmt: names from serName children,
// descriptions from serInfo children and the series URI attribute.
func Series(node *xmlquery.Node, report Reporter) (cmm.Series, bool) {
	var series cmm.Series
	for _, name := range Children(node, "serName") {
		if text := Text(name); text != "" {
			series.Names = append(series.Names, text)
		}
	}
	for _, info := range Children(node, "serInfo") {
		if text := Text(info); text != "" {
			series.Descriptions = append(series.Descriptions, text)
		}
	}
	if uri, ok := reportURI(Attr(node, "URI"), Lang(node), report); ok {
		series.URIs = append(series.URIs, uri)
	}
	if len(series.Names) == 0 && len(series.Descriptions) == 0 && len(series.URIs) == 0 {
		return cmm.Series{}, false
	}
	return series, true
}

// SeriesName extracts a series name from a DDI-Lifecycle group title.
func SeriesName(node *xmlquery.Node, _ Reporter) (cmm.Series, bool) {
	name := Text(node)
	if name == "" {
		return cmm.Series{}, false
	}
	return cmm.Series{Names: []string{name}}, true
}

// DataCollectionFreeText extracts a collDate element as free text with its
// event role. Without text content the date attribute is used.
func DataCollectionFreeText(node *xmlquery.Node, _ Reporter) (cmm.DataCollectionFreeText, bool) {
	text := Text(node)
	if text == "" {
		text = cleanXMLText(Attr(node, "date"))
	}
	if text == "" {
		return cmm.DataCollectionFreeText{}, false
	}
	return cmm.DataCollectionFreeText{DataCollectionFreeText: text, Event: Attr(node, "event")}, true
}

// LifecycleDataCollectionFreeText extracts the dates of a DDI-Lifecycle
// DataCollectionDate element as free texts.
func LifecycleDataCollectionFreeText(node *xmlquery.Node, _ Reporter) (cmm.DataCollectionFreeText, bool) {
	for _, role := range lifecycleDateRoles {
		if text := Text(Child(node, role.element)); text != "" {
			return cmm.DataCollectionFreeText{DataCollectionFreeText: text, Event: role.event}, true
		}
	}
	return cmm.DataCollectionFreeText{}, false
}
