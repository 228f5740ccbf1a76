package rule_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fluxgate/fluxgate/pkg/rule"
)

func TestBand_JSON(t *testing.T) {
	t.Parallel()

	b := rule.NewBand(100, time.Minute, "sustained")
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"window":"1m0s","capacity":100,"label":"sustained"}`, string(data))

	var back rule.Band
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b, back)

	var bad rule.Band
	err = json.Unmarshal([]byte(`{"window":"soon","capacity":1}`), &bad)
	assert.ErrorIs(t, err, rule.ErrInvalidBand)
}

func TestBand_YAML(t *testing.T) {
	t.Parallel()

	in := "window: 5s\ncapacity: 10\n"
	var b rule.Band
	require.NoError(t, yaml.Unmarshal([]byte(in), &b))
	assert.Equal(t, rule.NewBand(10, 5*time.Second, ""), b)

	out, err := yaml.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(out), "window: 5s")
	assert.Contains(t, string(out), "capacity: 10")
}

func TestRule_Clone(t *testing.T) {
	t.Parallel()

	r := rule.Rule{
		ID:        "r1",
		RuleSetID: "rs",
		Enabled:   true,
		Scope:     rule.ScopePerIP,
		Policy:    rule.PolicyReject,
		Bands:     []rule.Band{rule.NewBand(10, time.Second, "")},
		Attributes: map[string]string{
			"team": "edge",
		},
	}

	c := r.Clone()
	c.Bands[0].Capacity = 99
	c.Attributes["team"] = "core"

	assert.Equal(t, int64(10), r.Bands[0].Capacity)
	assert.Equal(t, "edge", r.Attributes["team"])
}
