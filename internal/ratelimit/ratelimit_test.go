package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicies(t *testing.T) {
	policies, err := ParsePolicies("6:1m,60:1h")
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, Policy{Limit: 6, Window: time.Minute}, policies[0])
	assert.Equal(t, Policy{Limit: 60, Window: time.Hour}, policies[1])
}

func TestParsePolicies_SkipsEmptyItems(t *testing.T) {
	policies, err := ParsePolicies(" 6:1m , ")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, Policy{Limit: 6, Window: time.Minute}, policies[0])
}

func TestParsePolicies_Errors(t *testing.T) {
	for _, raw := range []string{"", "6", "0:1m", "-1:1m", "6:0s", "6:soon", "x:1m"} {
		_, err := ParsePolicies(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}
