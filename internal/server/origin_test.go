package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		want    []string
		wantAll bool
	}{
		{
			name:    "Normalizes scheme and host casing",
			origins: []string{"HTTP://Example.COM:8080"},
			want:    []string{"http://example.com:8080"},
		},
		{
			name:    "Wildcard enables allow-all",
			origins: []string{"*"},
			want:    []string{},
			wantAll: true,
		},
		{
			name:    "Skips blank and invalid entries",
			origins: []string{"", "   ", "not a url", "http://ok.test"},
			want:    []string{"http://ok.test"},
		},
		{
			name:    "Deduplicates equivalent origins",
			origins: []string{"http://a.test", "HTTP://A.TEST"},
			want:    []string{"http://a.test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.origins)
			assert.Equal(t, tt.want, policy.origins())
			assert.Equal(t, tt.wantAll, policy.allowAll)
		})
	}
}

func TestOriginPolicyPermits(t *testing.T) {
	policy := newOriginPolicy([]string{"http://localhost:8080"})

	assert.True(t, policy.permits("http://localhost:8080"))
	assert.True(t, policy.permits("HTTP://LOCALHOST:8080"))
	assert.False(t, policy.permits("http://other.test"))
	assert.False(t, policy.permits(""))
	assert.False(t, policy.permits("not a url"))

	wildcard := newOriginPolicy([]string{"*"})
	assert.True(t, wildcard.permits("http://anything.test"))
	assert.False(t, wildcard.permits(""))
}
