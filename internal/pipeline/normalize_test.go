package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"acme.com", "acme.com"},
		{"  ACME.com ", "acme.com"},
		{"https://www.acme.com/about?x=1", "acme.com"},
		{"http://acme.com:8080", "acme.com"},
		{"jane@acme-tools.co.uk", "acme-tools.co.uk"},
		{"mailto:sales@acme.io", "acme.io"},
		{"www.acme.com.", "acme.com"},
		{"https://user:pw@shop.acme.com/", "shop.acme.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDomain(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDomain_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "localhost", "acme", "http://", "acme..com", "-acme.com", "10.0.0.1", "ac me.com"} {
		_, err := NormalizeDomain(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidDomain), in)
	}
}

func TestDomainsOverlap(t *testing.T) {
	assert.True(t, domainsOverlap("acme.com", "acme.com"))
	assert.True(t, domainsOverlap("shop.acme.com", "acme.com"))
	assert.True(t, domainsOverlap("acme.com", "shop.acme.com"))
	assert.True(t, domainsOverlap("acme.io", "acme.com"))
	assert.False(t, domainsOverlap("other.com", "acme.com"))
	assert.False(t, domainsOverlap("", "acme.com"))
}

func TestDomainTokens(t *testing.T) {
	assert.Equal(t, []string{"acme"}, domainTokens("acme.com"))
	assert.Equal(t, []string{"acme-tools", "acme tools", "acmetools"}, domainTokens("acme-tools.com"))
}
