package rulestore

import (
	"context"
	"slices"
	"strings"

	"github.com/fluxgate/fluxgate/pkg/rule"
)

// Repository is the durable store for rule documents.
type Repository interface {
	// FindByRuleSetID returns every rule of a set, disabled rules included,
	// sorted by rule id.
	FindByRuleSetID(ctx context.Context, ruleSetID string) ([]rule.Rule, error)

	// FindByID returns the rule with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (rule.Rule, error)

	// Save upserts a rule by its id. The rule is validated first.
	Save(ctx context.Context, r rule.Rule) error

	// DeleteByID removes one rule and reports whether it existed.
	DeleteByID(ctx context.Context, id string) (bool, error)

	// FindAll returns every stored rule sorted by rule id.
	FindAll(ctx context.Context) ([]rule.Rule, error)

	// DeleteByRuleSetID removes every rule of a set and returns the count.
	DeleteByRuleSetID(ctx context.Context, ruleSetID string) (int64, error)
}

func sortRules(rules []rule.Rule) {
	slices.SortFunc(rules, func(a, b rule.Rule) int {
		return strings.Compare(a.ID, b.ID)
	})
}
