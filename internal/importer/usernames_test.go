package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveUsername(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		alternative string
		wantName    string
		wantSlug    string
	}{
		{
			name:     "valid username passes through",
			username: "alice",
			wantName: "alice",
			wantSlug: "alice",
		},
		{
			name:     "spaces survive validity and slugify",
			username: "John Smith",
			wantName: "John Smith",
			wantSlug: "john-smith",
		},
		{
			name:     "malformed username gets sanitized",
			username: "al/ice",
			wantName: "alice",
			wantSlug: "alice",
		},
		{
			name:        "alternative used when sanitizing empties the name",
			username:    "///",
			alternative: "bob",
			wantName:    "bob",
			wantSlug:    "bob",
		},
		{
			name:        "alternative is sanitized too",
			username:    "///",
			alternative: "b/ob",
			wantName:    "bob",
			wantSlug:    "bob",
		},
		{
			name:     "no candidate survives",
			username: "///",
		},
		{
			name:        "empty username and alternative",
			username:    "",
			alternative: "",
		},
		{
			name:     "reserved name is rejected",
			username: "guest",
		},
		{
			name:        "reserved name falls back to alternative",
			username:    "Administrators",
			alternative: "real-admin",
			wantName:    "real-admin",
			wantSlug:    "real-admin",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotName, gotSlug := resolveUsername(tt.username, tt.alternative)
			assert.Equal(t, tt.wantName, gotName)
			assert.Equal(t, tt.wantSlug, gotSlug)
		})
	}
}

func TestResolveUsernameDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		name, slug := resolveUsername("J*hn D/oe", "fallback")
		first, firstSlug := resolveUsername("J*hn D/oe", "fallback")
		assert.Equal(t, first, name)
		assert.Equal(t, firstSlug, slug)
	}
}

func TestIsUsernameValid(t *testing.T) {
	assert.True(t, isUsernameValid("alice"))
	assert.True(t, isUsernameValid("alice-bob_99.c@d"))
	assert.False(t, isUsernameValid(""))
	assert.False(t, isUsernameValid("al/ice"))
	assert.False(t, isUsernameValid("GUEST"))
	assert.False(t, isUsernameValid("registered-users"))

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, isUsernameValid(string(long)))
}
