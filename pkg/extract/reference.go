package extract

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// Reference is a DDI-Lifecycle pointer to another element of the same
// document, identified by URN or by agency, ID and version.
type Reference struct {
	Agency       string `json:"agency,omitempty"`
	ID           string `json:"id,omitempty"`
	Version      string `json:"version,omitempty"`
	URN          string `json:"urn,omitempty"`
	TypeOfObject string `json:"type_of_object,omitempty"`
	External     bool   `json:"is_external,omitempty"`
}

// ParseReference reads a reference element such as r:OrganizationReference.
func ParseReference(node *xmlquery.Node) Reference {
	return Reference{
		Agency:       Text(Child(node, "Agency")),
		ID:           Text(Child(node, "ID")),
		Version:      Text(Child(node, "Version")),
		URN:          Text(Child(node, "URN")),
		TypeOfObject: Text(Child(node, "TypeOfObject")),
		External:     strings.EqualFold(strings.TrimSpace(Attr(node, "isExternal")), "true"),
	}
}

// IsZero reports whether the reference carries no identification at all.
func (r Reference) IsZero() bool {
	return r.URN == "" && r.Agency == "" && r.ID == "" && r.Version == ""
}

// String renders the reference as a DDI URN when possible.
func (r Reference) String() string {
	if r.URN != "" {
		return r.URN
	}
	return buildURN(r.Agency, r.ID, r.Version)
}

func buildURN(agency, id, version string) string {
	if agency == "" || id == "" {
		return ""
	}
	urn := "urn:ddi:" + agency + ":" + id
	if version != "" {
		urn += ":" + version
	}
	return urn
}
