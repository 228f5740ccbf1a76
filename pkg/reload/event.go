package reload

import "time"

// Source names where a reload event originated.
type Source string

const (
	SourcePubSub      Source = "PUBSUB"
	SourcePolling     Source = "POLLING"
	SourceManual      Source = "MANUAL"
	SourceAPI         Source = "API"
	SourceStartup     Source = "STARTUP"
	SourceCacheExpiry Source = "CACHE_EXPIRY"
)

// Event is one detected rule change. An empty RuleSetID means every rule
// set is affected (full reload).
type Event struct {
	RuleSetID string
	Source    Source
	At        time.Time
	Metadata  map[string]string
}

// Full reports whether the event covers all rule sets.
func (e Event) Full() bool { return e.RuleSetID == "" }
