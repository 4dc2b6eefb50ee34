package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dana/stagehand/internal/app"
	"github.com/spf13/cobra"
)

// configFileName is the optional project config, loaded before flags.
const configFileName = "stagehand.yml"

var (
	flagDebug         bool
	flagCheckerConfig string
	flagStagingRoot   string
	flagTransformCmd  string
	flagRunnerConfig  string
	flagNoRunner      bool
	flagLintPatterns  []string
	flagLintPolicy    string
	flagDevHost       string
	flagDevPort       int
	flagCachePath     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline",
	Long:  "Starts the type checker in watch mode and keeps staging artifacts and running lint until interrupted.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&flagDebug, "debug", false, "debug logging")
	runCmd.Flags().StringVar(&flagCheckerConfig, "checker-config", "", "type checker config file")
	runCmd.Flags().StringVar(&flagStagingRoot, "staging", "", "staging directory for test artifacts (empty disables tests)")
	runCmd.Flags().StringVar(&flagTransformCmd, "transform-cmd", "", "filter command applied to each artifact")
	runCmd.Flags().StringVar(&flagRunnerConfig, "runner-config", "", "test runner config file")
	runCmd.Flags().BoolVar(&flagNoRunner, "no-runner", false, "suppress the test runner")
	runCmd.Flags().StringSliceVar(&flagLintPatterns, "lint-pattern", nil, "lint file pattern (repeatable)")
	runCmd.Flags().StringVar(&flagLintPolicy, "lint", "", "lint policy: never, force, normal")
	runCmd.Flags().StringVar(&flagDevHost, "dev-host", "", "dev server host")
	runCmd.Flags().IntVar(&flagDevPort, "dev-port", 0, "dev server port")
	runCmd.Flags().StringVar(&flagCachePath, "cache", "", "artifact hash cache file")
}

func runRun(cmd *cobra.Command, args []string) error {
	root := projectRoot()

	cfg := app.Config{ProjectRoot: root}
	if err := app.LoadConfigFile(filepath.Join(root, configFileName), &cfg); err != nil {
		return err
	}
	applyFlags(&cfg)

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	if err := a.Start(); err != nil {
		return err
	}
	fmt.Printf("%s⚡ stagehand running%s (project %s)\n", colorBold, colorReset, filepath.Base(root))

	// First interrupt stops the test runner and exits — no second ^C needed.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-a.FirstRound():
		fmt.Printf("%s⚡ first check+lint round complete%s\n", colorGreen, colorReset)
	case <-sigCh:
		fmt.Println("\n⚡ shutting down...")
		return a.Stop()
	case err := <-a.Done():
		a.Stop()
		return err
	}

	select {
	case <-sigCh:
		fmt.Println("\n⚡ shutting down...")
		return a.Stop()
	case err := <-a.Done():
		a.Stop()
		return err
	}
}

// applyFlags overrides file config with whatever the user set explicitly.
func applyFlags(cfg *app.Config) {
	if flagDebug {
		cfg.Debug = true
	}
	if flagCheckerConfig != "" {
		cfg.CheckerConfig = flagCheckerConfig
	}
	if flagStagingRoot != "" {
		cfg.StagingRoot = flagStagingRoot
	}
	if flagTransformCmd != "" {
		cfg.TransformCommand = flagTransformCmd
	}
	if flagRunnerConfig != "" {
		cfg.RunnerConfig = flagRunnerConfig
	}
	if flagNoRunner {
		cfg.DisableRunner = true
	}
	if len(flagLintPatterns) > 0 {
		cfg.LintPatterns = flagLintPatterns
	}
	if flagLintPolicy != "" {
		cfg.LintPolicy = app.LintPolicy(flagLintPolicy)
	}
	if flagDevHost != "" {
		cfg.DevServerHost = flagDevHost
	}
	if flagDevPort != 0 {
		cfg.DevServerPort = flagDevPort
	}
	if flagCachePath != "" {
		cfg.CachePath = flagCachePath
	}
}
