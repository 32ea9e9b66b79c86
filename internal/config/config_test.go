package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	// A named file that does not exist is an error; no file at all is not.
	require.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://dev.icraftstories.com", cfg.BaseURL)
	assert.Equal(t, "stories", cfg.StoriesDir)
	assert.Equal(t, "english", cfg.ImplicitTag)
	assert.False(t, cfg.Headless)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STORYPRESS_EMAIL", "uploader@example.com")
	t.Setenv("STORYPRESS_PASSWORD", "hunter2")
	t.Setenv("STORYPRESS_HEADLESS", "true")
	t.Setenv("STORYPRESS_MIGRATE_SOURCE_URL", "https://src.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "uploader@example.com", cfg.Email)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "https://src.example.com", cfg.Migrate.SourceURL)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storypress.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://stage.example.com
stories_dir: /data/stories
poll:
  standard_interval_ms: 100
  standard_attempts: 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://stage.example.com", cfg.BaseURL)
	assert.Equal(t, "/data/stories", cfg.StoriesDir)
	assert.Equal(t, 100, cfg.Poll.StandardInterval)
	assert.Equal(t, 50, cfg.Poll.StandardAttempts)
}

func TestValidateUpload(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.ValidateUpload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, err.Error(), "password")

	cfg.Email = "a@b.c"
	cfg.Password = "pw"
	require.NoError(t, cfg.ValidateUpload())
}

func TestValidateMigrate(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.ValidateMigrate())

	cfg.Migrate = Migrate{
		SourceURL:    "https://src",
		SourceKey:    "sk",
		TargetURL:    "https://dst",
		TargetKey:    "tk",
		TargetUserID: "user_1",
	}
	require.NoError(t, cfg.ValidateMigrate())
}
