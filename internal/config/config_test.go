package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "s",
		"database": {"host": "localhost"},
		"ai": {"provider": "openai"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 900, cfg.Index.ChunkSize)
	require.Equal(t, 150, cfg.Index.ChunkOverlap)
	require.Equal(t, 64, cfg.Index.BatchSize)
	require.Equal(t, 6, cfg.Ask.TopKDefault)
	require.Equal(t, "pgvector", cfg.VectorStore.Type)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.True(t, cfg.ReindexEnabled())
}

func TestLoadRejectsBadOverlap(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "s",
		"database": {"host": "localhost"},
		"ai": {"provider": "openai"},
		"index": {"chunk_size": 100, "chunk_overlap": 100}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRequiresProvider(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "s",
		"database": {"host": "localhost"}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestReindexDisabled(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "s",
		"database": {"host": "localhost"},
		"ai": {"provider": "openai"},
		"index": {"enable_reindex": false}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.ReindexEnabled())
}
