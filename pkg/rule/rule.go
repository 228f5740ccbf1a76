package rule

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Scope determines which request attribute a rule keys its buckets by.
type Scope string

const (
	ScopeGlobal    Scope = "GLOBAL"      // one shared bucket for all callers
	ScopePerIP     Scope = "PER_IP"      // bucket per client IP
	ScopePerUser   Scope = "PER_USER"    // bucket per authenticated user id
	ScopePerAPIKey Scope = "PER_API_KEY" // bucket per API key
	ScopeCustom    Scope = "CUSTOM"      // bucket per request attribute named by KeyStrategyID
)

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopePerIP, ScopePerUser, ScopePerAPIKey, ScopeCustom:
		return true
	}
	return false
}

// Policy determines what happens to a request once a rule rejects it.
type Policy string

const (
	// PolicyReject rejects the request immediately with 429.
	PolicyReject Policy = "REJECT_REQUEST"
	// PolicyWait lets the orchestrator sleep until the bucket refills,
	// bounded by the configured maximum wait, then retry once.
	PolicyWait Policy = "WAIT_FOR_REFILL"
)

// Valid reports whether p is one of the known policies.
func (p Policy) Valid() bool {
	return p == PolicyReject || p == PolicyWait
}

// DefaultBandLabel is the bucket-key segment used for bands without a label.
const DefaultBandLabel = "default"

// Band is a single rate constraint of Capacity permits per Window.
// Bands are immutable values; a zero Band is invalid.
type Band struct {
	Window   time.Duration `json:"window" yaml:"window" bson:"window"`
	Capacity int64         `json:"capacity" yaml:"capacity" bson:"capacity"`
	Label    string        `json:"label,omitempty" yaml:"label,omitempty" bson:"label,omitempty"`
}

// NewBand builds a labeled band. The label may be empty, in which case the
// band occupies the "default" bucket-key segment.
func NewBand(capacity int64, window time.Duration, label string) Band {
	return Band{Window: window, Capacity: capacity, Label: label}
}

// KeyLabel returns the bucket-key segment for the band.
func (b Band) KeyLabel() string {
	if b.Label == "" {
		return DefaultBandLabel
	}
	return b.Label
}

// Validate checks the band invariants: capacity >= 1 and window >= 1ns.
func (b Band) Validate() error {
	if b.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be >= 1, got %d", ErrInvalidBand, b.Capacity)
	}
	if b.Window < time.Nanosecond {
		return fmt.Errorf("%w: window must be >= 1ns, got %v", ErrInvalidBand, b.Window)
	}
	return nil
}

// String renders the band as "capacity/window" for logs.
func (b Band) String() string {
	if b.Label != "" {
		return fmt.Sprintf("%s:%d/%v", b.Label, b.Capacity, b.Window)
	}
	return fmt.Sprintf("%d/%v", b.Capacity, b.Window)
}

// Rule is one or more bands sharing a scope and an on-limit policy.
// A rule is uniquely identified by ID within a repository; RuleSetID groups
// rules into the sets the limiter evaluates.
type Rule struct {
	ID            string            `json:"id" yaml:"id" bson:"_id"`
	Name          string            `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Enabled       bool              `json:"enabled" yaml:"enabled" bson:"enabled"`
	Scope         Scope             `json:"scope" yaml:"scope" bson:"scope"`
	KeyStrategyID string            `json:"keyStrategyId,omitempty" yaml:"keyStrategyId,omitempty" bson:"key_strategy_id,omitempty"`
	Policy        Policy            `json:"onLimitExceedPolicy" yaml:"onLimitExceedPolicy" bson:"on_limit_exceed_policy"`
	Bands         []Band            `json:"bands" yaml:"bands" bson:"bands"`
	RuleSetID     string            `json:"ruleSetId" yaml:"ruleSetId" bson:"rule_set_id"`
	Attributes    map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty" bson:"attributes,omitempty"`
}

// Validate checks all rule invariants. It returns ErrInvalidRule joined with
// the specific violations so callers can match either.
func (r Rule) Validate() error {
	var errs []error

	if r.ID == "" {
		errs = append(errs, ErrMissingID)
	} else if strings.ContainsRune(r.ID, ':') {
		errs = append(errs, fmt.Errorf("rule id %q: %w", r.ID, ErrReservedCharacter))
	}
	if r.RuleSetID == "" {
		errs = append(errs, ErrMissingRuleSetID)
	} else if strings.ContainsRune(r.RuleSetID, ':') {
		errs = append(errs, fmt.Errorf("rule set id %q: %w", r.RuleSetID, ErrReservedCharacter))
	}
	if !r.Scope.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidScope, r.Scope))
	}
	if r.Scope == ScopeCustom && r.KeyStrategyID == "" {
		errs = append(errs, ErrMissingKeyStrategy)
	}
	if !r.Policy.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidPolicy, r.Policy))
	}
	if len(r.Bands) == 0 {
		errs = append(errs, ErrNoBands)
	}
	labels := make(map[string]struct{}, len(r.Bands))
	for i, b := range r.Bands {
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("band %d: %w", i, err))
		}
		if _, dup := labels[b.KeyLabel()]; dup {
			errs = append(errs, fmt.Errorf("band %d: %w: %q", i, ErrDuplicateBand, b.KeyLabel()))
		}
		labels[b.KeyLabel()] = struct{}{}
	}

	if len(errs) > 0 {
		return errors.Join(ErrInvalidRule, errors.Join(errs...))
	}
	return nil
}

// Evaluable reports whether the rule participates in evaluation: it must be
// enabled and carry at least one band.
func (r Rule) Evaluable() bool {
	return r.Enabled && len(r.Bands) > 0
}

// Clone returns a deep copy, so callers can hand rules across goroutines
// without sharing the band slice or attribute map.
func (r Rule) Clone() Rule {
	out := r
	out.Bands = slices.Clone(r.Bands)
	out.Attributes = maps.Clone(r.Attributes)
	return out
}
