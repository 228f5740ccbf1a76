package ruleset

import (
	"context"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/limiter"
	"github.com/fluxgate/fluxgate/pkg/rulestore"
)

// Provider resolves a rule set id to an assembled, evaluable rule set.
// A nil set with a nil error means the id has no rules.
type Provider interface {
	FindByID(ctx context.Context, id string) (*limiter.RuleSet, error)
}

// RepositoryProvider assembles rule sets from the rule repository, attaching
// the configured key resolver and metrics recorder to every set it returns.
type RepositoryProvider struct {
	repo     rulestore.Repository
	resolver limiter.KeyResolver
	recorder limiter.Recorder
}

// ProviderOption configures a RepositoryProvider.
type ProviderOption func(*RepositoryProvider)

// WithKeyResolver sets the resolver attached to assembled sets.
func WithKeyResolver(r limiter.KeyResolver) ProviderOption {
	return func(p *RepositoryProvider) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithRecorder sets the metrics recorder attached to assembled sets.
func WithRecorder(r limiter.Recorder) ProviderOption {
	return func(p *RepositoryProvider) {
		if r != nil {
			p.recorder = r
		}
	}
}

// NewRepositoryProvider builds a provider reading from repo.
func NewRepositoryProvider(repo rulestore.Repository, opts ...ProviderOption) (*RepositoryProvider, error) {
	if repo == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "ruleset.NewRepositoryProvider", ErrNilRepository)
	}

	p := &RepositoryProvider{repo: repo}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// FindByID loads every rule of the set and assembles it. Disabled rules are
// kept so change detection sees them; the limiter skips them on evaluation.
func (p *RepositoryProvider) FindByID(ctx context.Context, id string) (*limiter.RuleSet, error) {
	const op = "ruleset.FindByID"

	if id == "" {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrEmptyID)
	}

	rules, err := p.repo.FindByRuleSetID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	return &limiter.RuleSet{
		ID:       id,
		Rules:    rules,
		Resolver: p.resolver,
		Recorder: p.recorder,
	}, nil
}
