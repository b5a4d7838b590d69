package scaffold

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/ideabid/internal/config"
	"github.com/dyluth/ideabid/pkg/bidding"
)

func TestInitialize(t *testing.T) {
	t.Run("writes a loadable configuration", func(t *testing.T) {
		dir := t.TempDir()

		paths, err := Initialize(dir, false)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(dir, config.DefaultPath),
			filepath.Join(dir, EnvFile),
		}, paths)

		cfg, err := config.Load(filepath.Join(dir, config.DefaultPath))
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.Storage.Backend)
		assert.Equal(t, 5*time.Minute, cfg.Session.PhaseDurations[bidding.PhaseDiscussion])
		assert.Equal(t, 2000, cfg.Budget.DefaultTotal)
	})

	t.Run("env file is private", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Initialize(dir, false)
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(dir, EnvFile))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultPath), []byte("version: '1.0'"), 0o644))

		_, err := Initialize(dir, false)
		assert.ErrorContains(t, err, "project already initialized")
	})

	t.Run("force overwrites", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultPath), []byte("garbage: ["), 0o644))

		_, err := Initialize(dir, true)
		require.NoError(t, err)
	})

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "project")
		_, err := Initialize(dir, false)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, config.DefaultPath))
	})
}

func TestCheckExisting(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		wantErr string
	}{
		{"no existing files", nil, ""},
		{"config only", []string{config.DefaultPath}, config.DefaultPath},
		{"env only", []string{EnvFile}, EnvFile},
		{"both", []string{config.DefaultPath, EnvFile}, config.DefaultPath + ", " + EnvFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
			}

			err := CheckExisting(dir)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
