package lifecycle

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Document ids are derived from the canonical UUID: "doc_" followed by the
// 32 lowercase hex characters of the UUID with dashes stripped. The mapping is
// reversible; anything else is treated as an opaque legacy id.

const docIDPrefix = "doc_"

var docIDPattern = regexp.MustCompile(`^doc_([0-9a-f]{32})$`)

// DeriveDocumentID returns the document id for a canonical UUID.
func DeriveDocumentID(canonicalUUID string) string {
	return docIDPrefix + strings.ToLower(strings.ReplaceAll(canonicalUUID, "-", ""))
}

// UUIDFromDocumentID recovers the dashed canonical UUID from a document id.
// The second return value is false for legacy ids that do not match the
// doc_<32 hex> pattern.
func UUIDFromDocumentID(documentID string) (string, bool) {
	m := docIDPattern.FindStringSubmatch(documentID)
	if m == nil {
		return "", false
	}
	hex := m[1]
	dashed := hex[0:8] + "-" + hex[8:12] + "-" + hex[12:16] + "-" + hex[16:20] + "-" + hex[20:32]
	if _, err := uuid.Parse(dashed); err != nil {
		return "", false
	}
	return dashed, true
}
