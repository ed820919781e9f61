package di

import (
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/hashicorp/go-hclog"
	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_Store(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = "mem"
	c := NewContainer(cfg, nil)
	c.SetFS(vfs.NewMem())
	t.Cleanup(func() { _ = c.Close() })

	s, err := c.Store()
	require.NoError(t, err)
	again, err := c.Store()
	require.NoError(t, err)
	assert.Same(t, s, again)

	users, ok := s.Lookup("users")
	require.True(t, ok)
	require.NoError(t, users.Put(codec.Row{"u1", "alice", int32(30), nil}))

	server, err := c.Server()
	require.NoError(t, err)
	assert.NotNil(t, server)

	_, err = c.Server()
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	// Reopening reuses the registered metrics.
	_, err = c.Store()
	require.NoError(t, err)
}

func TestContainer_StoreInMemoryDefaultDir(t *testing.T) {
	cfg := config.DefaultConfig()
	c := NewContainer(cfg, nil)
	fs := vfs.NewMem()
	c.SetFS(fs)
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.Store()
	require.NoError(t, err)

	_, err = fs.Stat(cfg.DataDir)
	assert.NoError(t, err)
}

func TestContainer_StoreOnDisk(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir() + "/data"
	c := NewContainer(cfg, hclog.NewNullLogger())

	_, err := c.Store()
	require.NoError(t, err)
	assert.DirExists(t, cfg.DataDir)
	require.NoError(t, c.Close())
}

func TestContainer_BadTable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tables[0].Columns[0].Type = "uuid"
	c := NewContainer(cfg, nil)
	c.SetFS(vfs.NewMem())

	_, err := c.Store()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	assert.True(t, NewLogger(cfg).IsDebug())
}
