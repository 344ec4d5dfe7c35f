package cmm

import "sort"

// Keys returns the keys of a per-language map in sorted order.
func Keys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(set map[string]struct{}) []string {
	values := make([]string, 0, len(set))
	for value := range set {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

// SortedUnique returns the distinct values of the input in sorted order,
// dropping empty strings.
func SortedUnique(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		if value != "" {
			set[value] = struct{}{}
		}
	}
	return sortedSet(set)
}

// ListBuilder accumulates list values per language in insertion order.
// Build freezes the builder; further Add calls panic.
type ListBuilder[T any] struct {
	values map[string][]T
	frozen bool
}

// NewListBuilder creates an empty list builder.
func NewListBuilder[T any]() *ListBuilder[T] {
	return &ListBuilder[T]{values: make(map[string][]T)}
}

// Add appends a value to the list for the given language.
func (b *ListBuilder[T]) Add(language string, value T) {
	if b.frozen {
		panic("cmm: Add on a built ListBuilder")
	}
	b.values[language] = append(b.values[language], value)
}

// Len returns the number of languages with at least one value.
func (b *ListBuilder[T]) Len() int {
	return len(b.values)
}

// Build returns the accumulated map and freezes the builder. Languages
// without values are not present in the result.
func (b *ListBuilder[T]) Build() map[string][]T {
	b.frozen = true
	result := make(map[string][]T, len(b.values))
	for language, values := range b.values {
		copied := make([]T, len(values))
		copy(copied, values)
		result[language] = copied
	}
	return result
}

// ValueBuilder accumulates a single value per language. A second value for
// the same language is combined with the first using the builder's merge
// policy.
type ValueBuilder[T any] struct {
	values map[string]T
	merge  Merge[T]
	frozen bool
}

// NewValueBuilder creates an empty value builder using merge to combine
// repeated values for one language.
func NewValueBuilder[T any](merge Merge[T]) *ValueBuilder[T] {
	return &ValueBuilder[T]{values: make(map[string]T), merge: merge}
}

// Add records a value for the given language.
func (b *ValueBuilder[T]) Add(language string, value T) {
	if b.frozen {
		panic("cmm: Add on a built ValueBuilder")
	}
	if existing, ok := b.values[language]; ok {
		b.values[language] = b.merge(existing, value)
		return
	}
	b.values[language] = value
}

// Build returns the accumulated map and freezes the builder.
func (b *ValueBuilder[T]) Build() map[string]T {
	b.frozen = true
	result := make(map[string]T, len(b.values))
	for language, value := range b.values {
		result[language] = value
	}
	return result
}
