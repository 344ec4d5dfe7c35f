package source

import (
	"errors"
	"testing"

	"github.com/coolbeans/ddiharvest/pkg/ddi"
)

const getRecordResponse = `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <responseDate>2024-05-01T10:00:00Z</responseDate>
  <request verb="GetRecord">https://example.org/oai</request>
  <GetRecord>
    <record>
      <header>
        <identifier>oai:example.org:2305</identifier>
        <datestamp>2024-04-30</datestamp>
        <setSpec>ddi</setSpec>
      </header>
      <metadata>
        <codeBook xmlns="ddi:codebook:2_5" xml:lang="en">
          <stdyDscr><citation><titlStmt><titl>Study</titl></titlStmt></citation></stdyDscr>
        </codeBook>
      </metadata>
    </record>
  </GetRecord>
</OAI-PMH>`

const deletedRecordResponse = `<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <GetRecord>
    <record>
      <header status="deleted">
        <identifier>oai:example.org:9999</identifier>
        <datestamp>2024-04-29</datestamp>
      </header>
    </record>
  </GetRecord>
</OAI-PMH>`

func TestParseDocument(t *testing.T) {
	t.Run("oai_envelope", func(t *testing.T) {
		doc, namespace, err := ParseDocument([]byte(getRecordResponse))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if namespace != ddi.NamespaceCodebook25 {
			t.Errorf("Expected codebook namespace, got %q", namespace)
		}
		if doc.Root == nil || doc.Root.Data != "codeBook" {
			t.Fatalf("Expected codeBook root, got %v", doc.Root)
		}
		header := HeaderOf(doc)
		if header.Identifier != "oai:example.org:2305" || header.Datestamp != "2024-04-30" {
			t.Errorf("Unexpected header: %+v", header)
		}
		if header.Deleted {
			t.Error("Expected active record")
		}
		if len(header.SetSpecs) != 1 || header.SetSpecs[0] != "ddi" {
			t.Errorf("Expected set spec ddi, got %v", header.SetSpecs)
		}
	})

	t.Run("deleted_record", func(t *testing.T) {
		doc, namespace, err := ParseDocument([]byte(deletedRecordResponse))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if namespace != "" || doc.Root != nil {
			t.Errorf("Expected no metadata root, got namespace %q", namespace)
		}
		if !HeaderOf(doc).Deleted {
			t.Error("Expected deleted header")
		}
	})

	t.Run("bare_document", func(t *testing.T) {
		_, namespace, err := ParseDocument([]byte(`<ddi:DDIInstance xmlns:ddi="ddi:instance:3_3"/>`))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if namespace != ddi.NamespaceLifecycle33 {
			t.Errorf("Expected lifecycle 3.3 namespace, got %q", namespace)
		}
	})

	t.Run("nesstar_without_namespace", func(t *testing.T) {
		doc, namespace, err := ParseDocument([]byte(`<codeBook><stdyDscr/></codeBook>`))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if namespace != ddi.NamespaceNesstar {
			t.Errorf("Expected nesstar namespace, got %q", namespace)
		}
		child := doc.Root.FirstChild
		if child == nil || child.NamespaceURI != ddi.NamespaceNesstar {
			t.Error("Expected descendants moved into the nesstar namespace")
		}
	})

	t.Run("malformed_xml", func(t *testing.T) {
		_, _, err := ParseDocument([]byte("this is not xml"))
		var malformed *MalformedDocumentError
		if !errors.As(err, &malformed) {
			t.Errorf("Expected MalformedDocumentError, got %v", err)
		}
	})

	t.Run("record_without_metadata", func(t *testing.T) {
		_, _, err := ParseDocument([]byte(`<record xmlns="http://www.openarchives.org/OAI/2.0/"><header><identifier>x</identifier></header></record>`))
		var malformed *MalformedDocumentError
		if !errors.As(err, &malformed) {
			t.Errorf("Expected MalformedDocumentError, got %v", err)
		}
	})

	t.Run("oai_error", func(t *testing.T) {
		_, _, err := ParseDocument([]byte(`<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/"><error code="idDoesNotExist">No such record</error></OAI-PMH>`))
		var oaiErr *OAIError
		if !errors.As(err, &oaiErr) || oaiErr.Code != "idDoesNotExist" {
			t.Errorf("Expected idDoesNotExist OAIError, got %v", err)
		}
	})
}

func TestHeaderOfNil(t *testing.T) {
	if header := HeaderOf(nil); header.Identifier != "" || header.Deleted {
		t.Errorf("Expected zero header, got %+v", header)
	}
}
