package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "50ms" (yaml.v3 has no native duration support).
type Duration time.Duration

// UnmarshalYAML parses either a duration string or a bare integer of
// nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		var n int64
		if err2 := node.Decode(&n); err2 == nil {
			*d = Duration(n)
			return nil
		}
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds initialization parameters for the App. The yaml tags match
// the optional stagehand.yml project file; CLI flags override file values.
type Config struct {
	// ProjectRoot is the directory whose sources are watched. Required.
	ProjectRoot string `yaml:"-"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// CheckerConfig is the type checker's own config file. Must exist —
	// a missing file is fatal before watch mode starts.
	CheckerConfig string `yaml:"checker_config"`

	// CheckerCommand launches the type checker bridge in watch mode.
	CheckerCommand []string `yaml:"checker_command"`

	// StagingRoot is where published artifacts are mirrored for the test
	// runner. Empty disables the whole test integration.
	StagingRoot string `yaml:"staging_root"`

	// Transform rewrites artifact content before staging. Programmatic
	// use only; the CLI populates it from TransformCommand.
	Transform TransformFunc `yaml:"-"`

	// TransformCommand is an external filter: content on stdin,
	// transformed content on stdout, file name in $STAGEHAND_FILE.
	TransformCommand string `yaml:"transform_command"`

	// RunnerConfig is the browser test runner's config file path.
	RunnerConfig string `yaml:"runner_config"`

	// RunnerCommand launches the test runner.
	RunnerCommand []string `yaml:"runner_command"`

	// DisableRunner suppresses the test runner even with a staging root.
	DisableRunner bool `yaml:"disable_runner"`

	// LintCommand executes one batch lint run, report as JSON on stdout.
	LintCommand []string `yaml:"lint_command"`

	// LintPatterns scopes the lint run.
	LintPatterns []string `yaml:"lint_patterns"`

	// LintPolicy is never, force, or normal.
	LintPolicy LintPolicy `yaml:"lint_policy"`

	// LintFormatter names the report formatter (compact, json).
	LintFormatter string `yaml:"lint_formatter"`

	// DevServerHost/DevServerPort locate the build server artifacts are
	// fetched from. Supplied by the host's config-resolved hook.
	DevServerHost string `yaml:"dev_server_host"`
	DevServerPort int    `yaml:"dev_server_port"`

	// SettleDelay pauses between the first staged artifact and the test
	// runner start.
	SettleDelay Duration `yaml:"settle_delay"`

	// CachePath is the bbolt file for the artifact hash cache. Empty
	// disables the cache.
	CachePath string `yaml:"cache_path"`
}

// LoadConfigFile reads a stagehand.yml into cfg, leaving fields the file
// does not mention untouched. A missing file is not an error — the file is
// optional.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if c.CheckerConfig == "" {
		c.CheckerConfig = "tsconfig.json"
	}
	if len(c.CheckerCommand) == 0 {
		c.CheckerCommand = []string{"tsc-bridge", "--watch"}
	}
	if len(c.LintCommand) == 0 {
		c.LintCommand = []string{"lint-bridge", "--format=json"}
	}
	if len(c.LintPatterns) == 0 {
		c.LintPatterns = []string{"src/**/*.ts"}
	}
	if c.LintPolicy == "" {
		c.LintPolicy = LintNormal
	}
	if c.LintFormatter == "" {
		c.LintFormatter = "compact"
	}
	if len(c.RunnerCommand) == 0 {
		c.RunnerCommand = []string{"testrunner-bridge"}
	}
	if c.DevServerHost == "" {
		c.DevServerHost = "127.0.0.1"
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = Duration(DefaultSettleDelay)
	}
}

// validate rejects configurations the pipeline cannot run with.
func (c *Config) validate() error {
	if c.ProjectRoot == "" {
		return fmt.Errorf("project root required")
	}
	if _, err := os.Stat(c.CheckerConfig); err != nil {
		return fmt.Errorf("checker config %s: %w", c.CheckerConfig, err)
	}
	if c.StagingRoot != "" && c.DevServerPort == 0 {
		return fmt.Errorf("staging root set but no dev server port configured")
	}
	return nil
}
