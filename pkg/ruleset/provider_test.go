package ruleset_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/limiter"
	"github.com/fluxgate/fluxgate/pkg/rule"
	"github.com/fluxgate/fluxgate/pkg/rulestore"
	"github.com/fluxgate/fluxgate/pkg/ruleset"
)

func providerRule(id, setID string, enabled bool) rule.Rule {
	return rule.Rule{
		ID:        id,
		Enabled:   enabled,
		Scope:     rule.ScopePerIP,
		Policy:    rule.PolicyReject,
		Bands:     []rule.Band{rule.NewBand(10, time.Minute, "")},
		RuleSetID: setID,
	}
}

func TestRepositoryProvider_FindByID(t *testing.T) {
	t.Parallel()

	repo := rulestore.NewMemoryRepository()
	require.NoError(t, repo.Seed(
		providerRule("r1", "api", true),
		providerRule("r2", "api", false),
		providerRule("r3", "other", true),
	))

	resolver := limiter.NewScopeResolver(nil)
	recorder := limiter.RecorderFunc(func(context.Context, limiter.RequestContext, limiter.Result) {})

	p, err := ruleset.NewRepositoryProvider(repo,
		ruleset.WithKeyResolver(resolver),
		ruleset.WithRecorder(recorder))
	require.NoError(t, err)

	got, err := p.FindByID(context.Background(), "api")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "api", got.ID)
	// Disabled rules stay in the set so change detection sees them.
	assert.Len(t, got.Rules, 2)
	assert.NotNil(t, got.Resolver)
	assert.NotNil(t, got.Recorder)
}

func TestRepositoryProvider_UnknownSetIsNil(t *testing.T) {
	t.Parallel()

	p, err := ruleset.NewRepositoryProvider(rulestore.NewMemoryRepository())
	require.NoError(t, err)

	got, err := p.FindByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryProvider_Validation(t *testing.T) {
	t.Parallel()

	_, err := ruleset.NewRepositoryProvider(nil)
	require.Error(t, err)
	assert.Equal(t, fluxerr.KindInvalidArgument, fluxerr.KindOf(err))

	p, err := ruleset.NewRepositoryProvider(rulestore.NewMemoryRepository())
	require.NoError(t, err)
	_, err = p.FindByID(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, fluxerr.KindInvalidArgument, fluxerr.KindOf(err))
}
