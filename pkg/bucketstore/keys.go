package bucketstore

// Namespace prefixes every bucket key stored in the KV store.
const Namespace = "fluxgate"

// Key builds the canonical bucket key for one band of one rule:
// fluxgate:{ruleSetID}:{ruleID}:{keyValue}:{bandLabel}.
//
// keyValue is embedded verbatim; rule set and rule identifiers must not
// contain a colon so prefixes stay unambiguous.
func Key(ruleSetID, ruleID, keyValue, bandLabel string) string {
	return Namespace + ":" + ruleSetID + ":" + ruleID + ":" + keyValue + ":" + bandLabel
}

// SetPrefix covers every bucket key belonging to a rule set.
func SetPrefix(ruleSetID string) string {
	return Namespace + ":" + ruleSetID + ":"
}

// RulePrefix covers every bucket key belonging to one rule of a rule set.
func RulePrefix(ruleSetID, ruleID string) string {
	return Namespace + ":" + ruleSetID + ":" + ruleID + ":"
}

// AllPrefix covers every bucket key in the namespace. Used for full reloads.
func AllPrefix() string {
	return Namespace + ":"
}
