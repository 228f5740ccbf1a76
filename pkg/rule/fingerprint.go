package rule

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SetDoc is the raw, storage-shaped form of a rule set: the identifier, the
// optional description and the rules in provider order. It exists so that
// change detection can hash exactly what a reload would re-assemble.
type SetDoc struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Rules       []Rule `json:"rules"`
}

// Fingerprint returns a deterministic content hash over {id, description,
// rules}. Two documents with the same content always produce the same
// fingerprint, so the polling reload strategy compares fingerprints across
// rounds to detect changes.
//
// encoding/json sorts map keys, which keeps Attributes deterministic; rule
// order is preserved as given, matching provider assembly order.
func Fingerprint(doc SetDoc) string {
	raw, err := json.Marshal(doc)
	if err != nil {
		// The document model contains only marshalable types; an error here
		// means the model itself changed incompatibly.
		panic("rule: fingerprint marshal: " + err.Error())
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
