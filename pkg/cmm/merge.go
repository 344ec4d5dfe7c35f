package cmm

import "strings"

// AbstractSeparator joins abstracts that share a language.
const AbstractSeparator = "<br>"

// Merge combines the value already held for a language with a second value
// for the same language. Backfill calls it with the default-language value
// first and the unlabeled value second.
type Merge[T any] func(existing, unlabeled T) T

// FirstWins keeps the existing value.
func FirstWins[T any](existing, _ T) T {
	return existing
}

// ConcatLists appends the second list to the first.
func ConcatLists[T any](existing, unlabeled []T) []T {
	merged := make([]T, 0, len(existing)+len(unlabeled))
	merged = append(merged, existing...)
	return append(merged, unlabeled...)
}

// JoinWith returns a merge policy joining non-empty strings with separator.
func JoinWith(separator string) Merge[string] {
	return func(existing, unlabeled string) string {
		switch {
		case existing == "":
			return unlabeled
		case unlabeled == "":
			return existing
		}
		return existing + separator + unlabeled
	}
}

// JoinWithBreak joins abstract texts with an HTML line break.
var JoinWithBreak = JoinWith(AbstractSeparator)

// MergeUniverse joins inclusion and exclusion texts separately.
func MergeUniverse(existing, unlabeled Universe) Universe {
	join := JoinWith("\n")
	return Universe{
		Inclusion: join(existing.Inclusion, unlabeled.Inclusion),
		Exclusion: join(existing.Exclusion, unlabeled.Exclusion),
	}
}

// Backfill moves the NoLanguage entry of m into defaultLanguage using merge.
// When enabled is false, or no default language is known, the NoLanguage
// entry is dropped instead. The input map is not modified.
func Backfill[V any](m map[string]V, defaultLanguage string, merge Merge[V], enabled bool) map[string]V {
	if m == nil {
		return nil
	}
	result := make(map[string]V, len(m))
	for language, value := range m {
		if language != NoLanguage {
			result[language] = value
		}
	}

	unlabeled, ok := m[NoLanguage]
	if !ok || !enabled || defaultLanguage == NoLanguage {
		return result
	}

	if existing, exists := result[defaultLanguage]; exists {
		result[defaultLanguage] = merge(existing, unlabeled)
	} else {
		result[defaultLanguage] = unlabeled
	}
	return result
}

// CleanCharacterReturns replaces carriage returns and line feeds with
// spaces and trims the result.
func CleanCharacterReturns(text string) string {
	replacer := strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")
	return strings.TrimSpace(replacer.Replace(text))
}
