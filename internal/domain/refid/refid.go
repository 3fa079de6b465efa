// Package refid recognizes the shareable reference identifiers (TYPE-XXX-999)
// assigned to shops, products, menu entries, services and offices.
package refid

import (
	"regexp"
	"strings"
)

// Kind is the record family encoded in the identifier prefix.
type Kind string

// Identifier prefixes.
const (
	Shop    Kind = "SHP"
	Product Kind = "PRD"
	Menu    Kind = "MNU"
	Service Kind = "SRV"
	Office  Kind = "OFF"
)

var grammar = regexp.MustCompile(`^(SHP|PRD|MNU|SRV|OFF)-[A-Z]{3}-[0-9]{3}$`)

// Normalize trims the query and canonicalizes it to uppercase.
func Normalize(query string) string {
	return strings.ToUpper(strings.TrimSpace(query))
}

// IsReferenceID reports whether the normalized query matches the identifier grammar.
// It never rejects a query: a false result routes to universal search.
func IsReferenceID(query string) bool {
	return grammar.MatchString(Normalize(query))
}

// Parse returns the canonical identifier and its kind.
func Parse(query string) (string, Kind, bool) {
	id := Normalize(query)
	if !grammar.MatchString(id) {
		return "", "", false
	}
	return id, Kind(id[:3]), true
}
