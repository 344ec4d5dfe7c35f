package extract

import (
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
)

const lifecycleFixture = `<?xml version="1.0" encoding="UTF-8"?>
<ddi:DDIInstance xmlns:ddi="ddi:instance:3_2" xmlns:r="ddi:reusable:3_2" xmlns:a="ddi:archive:3_2">
  <s:StudyUnit xmlns:s="ddi:studyunit:3_2">
    <r:Citation>
      <r:Creator>
        <r:CreatorReference>
          <r:Agency>UKDA</r:Agency>
          <r:ID>X</r:ID>
          <r:Version>1</r:Version>
          <r:TypeOfObject>Organization</r:TypeOfObject>
        </r:CreatorReference>
      </r:Creator>
    </r:Citation>
    <r:OtherReference isExternal="true">
      <r:Agency>UKDA</r:Agency>
      <r:ID>X</r:ID>
      <r:Version>1</r:Version>
    </r:OtherReference>
    <r:URNReference>
      <r:URN>urn:ddi:UKDA:Y:2</r:URN>
    </r:URNReference>
  </s:StudyUnit>
  <a:OrganizationScheme>
    <a:Organization>
      <r:Agency>UKDA</r:Agency>
      <r:ID>X</r:ID>
      <r:Version>1</r:Version>
      <a:OrganizationName><r:String xml:lang="en">First Archive</r:String></a:OrganizationName>
    </a:Organization>
    <a:Organization>
      <r:Agency>UKDA</r:Agency>
      <r:ID>X</r:ID>
      <r:Version>1</r:Version>
      <a:OrganizationName><r:String xml:lang="en">Second Archive</r:String></a:OrganizationName>
    </a:Organization>
    <a:Organization>
      <r:Agency>UKDA</r:Agency>
      <r:ID>Y</r:ID>
      <r:Version>2</r:Version>
      <a:OrganizationName><r:String xml:lang="en">Third Archive</r:String></a:OrganizationName>
    </a:Organization>
  </a:OrganizationScheme>
</ddi:DDIInstance>`

func parseFixture(t *testing.T, content string) *xmlquery.Node {
	t.Helper()
	doc, err := xmlquery.Parse(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	return doc
}

func findFirst(t *testing.T, root *xmlquery.Node, localName string) *xmlquery.Node {
	t.Helper()
	node := xmlquery.FindOne(root, "//*[local-name()='"+localName+"']")
	if node == nil {
		t.Fatalf("Fixture has no %s element", localName)
	}
	return node
}

func organizationName(node *xmlquery.Node) string {
	return Text(Path(node, "OrganizationName", "String"))
}

func TestParseReference(t *testing.T) {
	doc := parseFixture(t, lifecycleFixture)

	t.Run("reads_identification_children", func(t *testing.T) {
		ref := ParseReference(findFirst(t, doc, "CreatorReference"))
		if ref.Agency != "UKDA" || ref.ID != "X" || ref.Version != "1" {
			t.Errorf("Expected UKDA/X/1, got %s/%s/%s", ref.Agency, ref.ID, ref.Version)
		}
		if ref.TypeOfObject != "Organization" {
			t.Errorf("Expected TypeOfObject Organization, got %q", ref.TypeOfObject)
		}
		if ref.External {
			t.Error("Expected internal reference")
		}
		if ref.String() != "urn:ddi:UKDA:X:1" {
			t.Errorf("Expected URN rendering, got %q", ref.String())
		}
	})

	t.Run("reads_is_external", func(t *testing.T) {
		ref := ParseReference(findFirst(t, doc, "OtherReference"))
		if !ref.External {
			t.Error("Expected external reference")
		}
	})
}

func TestReferenceResolver(t *testing.T) {
	doc := parseFixture(t, lifecycleFixture)
	resolver := NewReferenceResolver(doc)

	t.Run("first_match_in_document_order", func(t *testing.T) {
		target, status := resolver.ResolveNode(findFirst(t, doc, "CreatorReference"))
		if status != ResolutionResolved {
			t.Fatalf("Expected resolved, got %s", status)
		}
		if target.Data != "Organization" {
			t.Errorf("Expected Organization element, got %s", target.Data)
		}
		if name := organizationName(target); name != "First Archive" {
			t.Errorf("Expected first matching organization, got %q", name)
		}
	})

	t.Run("external_reference_is_not_resolved", func(t *testing.T) {
		target, status := resolver.ResolveNode(findFirst(t, doc, "OtherReference"))
		if target != nil || status != ResolutionExternal {
			t.Errorf("Expected external status and no target, got %v %s", target, status)
		}
	})

	t.Run("matches_by_urn", func(t *testing.T) {
		target, status := resolver.ResolveNode(findFirst(t, doc, "URNReference"))
		if status != ResolutionResolved {
			t.Fatalf("Expected resolved, got %s", status)
		}
		if name := organizationName(target); name != "Third Archive" {
			t.Errorf("Expected Third Archive, got %q", name)
		}
	})

	t.Run("urn_scheme_is_case_insensitive", func(t *testing.T) {
		target, status := resolver.Resolve(Reference{URN: "URN:DDI:UKDA:Y:2"})
		if status != ResolutionResolved {
			t.Fatalf("Expected resolved, got %s", status)
		}
		if name := organizationName(target); name != "Third Archive" {
			t.Errorf("Expected Third Archive, got %q", name)
		}
	})

	t.Run("version_mismatch_not_found", func(t *testing.T) {
		_, status := resolver.Resolve(Reference{Agency: "UKDA", ID: "X", Version: "9"})
		if status != ResolutionNotFound {
			t.Errorf("Expected not_found, got %s", status)
		}
	})

	t.Run("type_of_object_narrows_search", func(t *testing.T) {
		_, status := resolver.Resolve(Reference{Agency: "UKDA", ID: "X", Version: "1", TypeOfObject: "Individual"})
		if status != ResolutionNotFound {
			t.Errorf("Expected not_found for wrong object type, got %s", status)
		}
	})

	t.Run("empty_reference", func(t *testing.T) {
		_, status := resolver.Resolve(Reference{})
		if status != ResolutionEmpty {
			t.Errorf("Expected empty, got %s", status)
		}
	})

	t.Run("resolve_all_skips_unresolved", func(t *testing.T) {
		refs := xmlquery.Find(doc, "//*[contains(local-name(), 'Reference')]")
		if len(refs) != 3 {
			t.Fatalf("Expected 3 reference elements, got %d", len(refs))
		}
		resolved := resolver.ResolveAll(refs)
		if len(resolved) != 2 {
			t.Errorf("Expected 2 resolved targets, got %d", len(resolved))
		}
	})
}

func TestNewReferenceResolverNilRoot(t *testing.T) {
	resolver := NewReferenceResolver(nil)
	if _, status := resolver.Resolve(Reference{ID: "X"}); status != ResolutionNotFound {
		t.Errorf("Expected not_found on empty resolver, got %s", status)
	}
}
