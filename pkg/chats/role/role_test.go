package role_test

import (
	"testing"

	"github.com/reedham/tether/pkg/chats/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		role role.Role
		want bool
	}{
		{role.System, true},
		{role.User, true},
		{role.Assistant, true},
		{role.Tool, true},
		{role.Role("unknown"), false},
		{role.Role(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Valid())
		})
	}
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "system", role.System.String())
	assert.Equal(t, "user", role.User.String())
	assert.Equal(t, "assistant", role.Assistant.String())
	assert.Equal(t, "tool", role.Tool.String())
}

func TestParse(t *testing.T) {
	r, err := role.Parse("assistant")
	require.NoError(t, err)
	assert.Equal(t, role.Assistant, r)

	_, err = role.Parse("narrator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")

	_, err = role.Parse("")
	require.Error(t, err)
}
