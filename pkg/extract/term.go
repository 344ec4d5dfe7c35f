package extract

import (
	"github.com/antchfx/xmlquery"
	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

// VocabAttributeNames names the attributes carrying controlled vocabulary
// metadata in a dialect.
type VocabAttributeNames struct {
	Vocab    string
	VocabURI string
	ID       string
}

// CodebookVocabAttributes are the DDI-Codebook vocabulary attributes.
var CodebookVocabAttributes = VocabAttributeNames{Vocab: "vocab", VocabURI: "vocabURI", ID: "ID"}

// LifecycleVocabAttributes are the DDI-Lifecycle CodeValueType attributes.
var LifecycleVocabAttributes = VocabAttributeNames{
	Vocab:    "controlledVocabularyName",
	VocabURI: "controlledVocabularyURN",
	ID:       "controlledVocabularyID",
}

// Term returns a strategy extracting a term with optional vocabulary
// metadata. When the element has a nested concept child, the concept's
// attributes describe the vocabulary and its text is the term identifier;
// otherwise the element's own attributes are used.
func Term(names VocabAttributeNames) Strategy[cmm.TermVocabAttributes] {
	return func(node *xmlquery.Node, _ Reporter) (cmm.TermVocabAttributes, bool) {
		if concept := Child(node, "concept"); concept != nil {
			term := OwnText(node)
			conceptText := Text(concept)
			if term == "" {
				term = conceptText
			}
			if term == "" {
				return cmm.TermVocabAttributes{}, false
			}
			return cmm.TermVocabAttributes{
				Vocab:    Attr(concept, names.Vocab),
				VocabURI: Attr(concept, names.VocabURI),
				ID:       conceptText,
				Term:     term,
			}, true
		}

		term := Text(node)
		if term == "" {
			return cmm.TermVocabAttributes{}, false
		}
		return cmm.TermVocabAttributes{
			Vocab:    Attr(node, names.Vocab),
			VocabURI: Attr(node, names.VocabURI),
			ID:       Attr(node, names.ID),
			Term:     term,
		}, true
	}
}
