package rulestore

import (
	"context"
	"sync"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/rule"
)

// MemoryRepository keeps rules in process memory. Intended for tests and
// embedded single-node deployments.
type MemoryRepository struct {
	mu    sync.RWMutex
	rules map[string]rule.Rule
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rules: make(map[string]rule.Rule)}
}

// Seed stores the given rules, replacing any with matching ids. It validates
// each rule and is a convenience for tests and static setups.
func (m *MemoryRepository) Seed(rules ...rule.Rule) error {
	for _, r := range rules {
		if err := m.Save(context.Background(), r); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryRepository) FindByRuleSetID(ctx context.Context, ruleSetID string) ([]rule.Rule, error) {
	if ruleSetID == "" {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.memory.FindByRuleSetID", ErrEmptyRuleSetID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []rule.Rule
	for _, r := range m.rules {
		if r.RuleSetID == ruleSetID {
			out = append(out, r.Clone())
		}
	}
	sortRules(out)
	return out, nil
}

func (m *MemoryRepository) FindByID(ctx context.Context, id string) (rule.Rule, error) {
	if id == "" {
		return rule.Rule{}, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.memory.FindByID", ErrEmptyID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rules[id]
	if !ok {
		return rule.Rule{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryRepository) Save(ctx context.Context, r rule.Rule) error {
	if err := r.Validate(); err != nil {
		return fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.memory.Save", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules[r.ID] = r.Clone()
	return nil
}

func (m *MemoryRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.memory.DeleteByID", ErrEmptyID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return false, nil
	}
	delete(m.rules, id)
	return true, nil
}

func (m *MemoryRepository) FindAll(ctx context.Context) ([]rule.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]rule.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r.Clone())
	}
	sortRules(out)
	return out, nil
}

func (m *MemoryRepository) DeleteByRuleSetID(ctx context.Context, ruleSetID string) (int64, error) {
	if ruleSetID == "" {
		return 0, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.memory.DeleteByRuleSetID", ErrEmptyRuleSetID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.rules {
		if r.RuleSetID == ruleSetID {
			delete(m.rules, id)
			n++
		}
	}
	return n, nil
}
