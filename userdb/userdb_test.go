package userdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Empty(t *testing.T) {
	u, err := New(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", u.Name("123"))
	require.NoError(t, u.Set("123", "Shin"))
	assert.Equal(t, "Shin", u.Name("123"))
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.toml")
	err := os.WriteFile(path, []byte("[123]\nDisplayName = \"Shin\"\n"), 0600)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	u, err := New(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Shin", u.Name("123"))
	assert.Equal(t, "", u.Name("456"))
}

func TestNew_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.toml")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u, err := New(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Len())
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, u.Set("789", "Xackery"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Xackery")
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.toml")
	require.NoError(t, os.WriteFile(path, []byte("[1]\nDisplayName = \"A\"\n"), 0600))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("[1]\nDisplayName = \"B\"\n"), 0600))

	assert.Eventually(t, func() bool { return u.Name("1") == "B" }, 2*time.Second, 20*time.Millisecond)
}

func TestName_Nil(t *testing.T) {
	var u *UserDB
	assert.Equal(t, "", u.Name("1"))
}
