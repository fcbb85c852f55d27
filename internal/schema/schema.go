// Package schema defines the demographic record model for hippocratic.
//
// Records are plain value types. They contribute the strings fed into the
// similarity indexes and the identifiers those strings are stored under.
package schema

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// RecordID identifies a person or organization record.
type RecordID string

// Kind is the type of entity a record describes.
type Kind string

const (
	KindPerson       Kind = "person"
	KindOrganization Kind = "organization"
)

// ParseKind parses a record kind. An empty string is a person.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "person", "human":
		return KindPerson, nil
	case "organization", "organisation", "org":
		return KindOrganization, nil
	}
	return "", fmt.Errorf("unknown record kind: %q", s)
}

// Field names an indexed attribute of a record.
type Field string

const (
	FieldName    Field = "name"
	FieldAddress Field = "address"
	FieldTIN     Field = "tin"
)

// AllFields lists every indexed field.
var AllFields = []Field{FieldName, FieldAddress, FieldTIN}

// ErrUnknownField is returned by ParseField.
var ErrUnknownField = errors.New("unknown field")

// ParseField parses a field name.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllFields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Entity is a record that can be indexed.
type Entity interface {
	RecordID() RecordID
	Kind() Kind
	// FieldValues returns the display strings of field, empty if absent.
	FieldValues(field Field) []string
	// Fingerprint is a structural hash independent of map iteration order.
	Fingerprint() uint64
}

// ContactMap maps a label ("home", "work") to a phone number or email address.
type ContactMap map[string]string

// hashString returns the FNV-1a hash of the given parts.
func hashString(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// unorderedHash combines element hashes with XOR so the result does not
// depend on iteration order.
func unorderedHash[K comparable, V any](tag string, m map[K]V, elem func(K, V) string) uint64 {
	var acc uint64
	for k, v := range m {
		acc ^= hashString(tag, elem(k, v))
	}
	return acc
}

// combine folds ordered hashes, as h = h*prime ^ x.
func combine(hashes ...uint64) uint64 {
	const prime = 1099511628211
	var h uint64 = 14695981039346656037
	for _, x := range hashes {
		h = (h * prime) ^ x
	}
	return h
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
