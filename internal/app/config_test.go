package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile_MissingFileIsOptional(t *testing.T) {
	cfg := Config{Debug: true}
	err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yml"), &cfg)
	require.NoError(t, err)
	assert.True(t, cfg.Debug, "untouched on missing file")
}

func TestLoadConfigFile_ParsesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagehand.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
staging_root: build_test
lint_policy: force
lint_patterns:
  - "src/**/*.ts"
  - "lib/**/*.ts"
dev_server_port: 8080
settle_delay: 100ms
disable_runner: true
`), 0644))

	var cfg Config
	require.NoError(t, LoadConfigFile(path, &cfg))

	assert.Equal(t, "build_test", cfg.StagingRoot)
	assert.Equal(t, LintForce, cfg.LintPolicy)
	assert.Len(t, cfg.LintPatterns, 2)
	assert.Equal(t, 8080, cfg.DevServerPort)
	assert.Equal(t, 100*time.Millisecond, time.Duration(cfg.SettleDelay))
	assert.True(t, cfg.DisableRunner)
}

func TestLoadConfigFile_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagehand.yml")
	require.NoError(t, os.WriteFile(path, []byte("staging_root: [unclosed"), 0644))

	var cfg Config
	assert.Error(t, LoadConfigFile(path, &cfg))
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, "tsconfig.json", cfg.CheckerConfig)
	assert.Equal(t, LintNormal, cfg.LintPolicy)
	assert.Equal(t, "compact", cfg.LintFormatter)
	assert.Equal(t, Duration(DefaultSettleDelay), cfg.SettleDelay)
	assert.NotEmpty(t, cfg.CheckerCommand)
}

func TestValidate_MissingCheckerConfigIsFatal(t *testing.T) {
	cfg := Config{
		ProjectRoot:   t.TempDir(),
		CheckerConfig: filepath.Join(t.TempDir(), "absent.json"),
	}
	cfg.applyDefaults()

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checker config")
}

func TestValidate_StagingWithoutPort(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "tsconfig.json")
	require.NoError(t, os.WriteFile(cfgFile, []byte("{}"), 0644))

	cfg := Config{
		ProjectRoot:   dir,
		CheckerConfig: cfgFile,
		StagingRoot:   filepath.Join(dir, "build_test"),
	}
	cfg.applyDefaults()

	err := cfg.validate()
	assert.ErrorContains(t, err, "dev server port")

	cfg.DevServerPort = 8080
	assert.NoError(t, cfg.validate())
}
