package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAuthorizer_IsPrivileged(t *testing.T) {
	a := NewStaticAuthorizer([]string{"root", "ops"})
	ctx := context.Background()

	ok, err := a.IsPrivileged(ctx, "root")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.IsPrivileged(ctx, "ops")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.IsPrivileged(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStaticAuthorizer_EmptySet(t *testing.T) {
	a := NewStaticAuthorizer(nil)

	ok, err := a.IsPrivileged(context.Background(), "anyone")
	require.NoError(t, err)
	assert.False(t, ok)
}
