package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dana/stagehand/internal/app"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved configuration",
	Long:  "Shows the effective pipeline configuration after the project file and defaults. Nothing is started.",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := projectRoot()

	cfg := app.Config{ProjectRoot: root}
	if err := app.LoadConfigFile(filepath.Join(root, configFileName), &cfg); err != nil {
		return err
	}
	applyFlags(&cfg)

	staging := cfg.StagingRoot
	testStatus := fmt.Sprintf("%s✓ enabled%s", colorGreen, colorReset)
	if staging == "" {
		staging = "(unset)"
		testStatus = fmt.Sprintf("%s✗ disabled: no staging root%s", colorYellow, colorReset)
	} else if cfg.DisableRunner {
		testStatus = fmt.Sprintf("%s✗ disabled by flag%s", colorYellow, colorReset)
	}

	checkerStatus := ""
	if _, err := os.Stat(cfg.CheckerConfig); err != nil {
		checkerStatus = fmt.Sprintf("  %s(missing!)%s", colorYellow, colorReset)
	}

	fmt.Printf("%s⚡ stagehand config%s\n", colorBold, colorReset)
	fmt.Printf("  Project:        %s\n", filepath.Base(root))
	fmt.Printf("  Root:           %s\n", root)
	fmt.Printf("  Checker config: %s%s\n", orDefault(cfg.CheckerConfig, "tsconfig.json"), checkerStatus)
	fmt.Printf("  Staging:        %s\n", staging)
	fmt.Printf("  Test runner:    %s\n", testStatus)
	fmt.Printf("  Lint policy:    %s\n", orDefault(string(cfg.LintPolicy), "normal"))
	if cfg.DevServerPort != 0 {
		fmt.Printf("  Dev server:     http://%s:%d\n", orDefault(cfg.DevServerHost, "127.0.0.1"), cfg.DevServerPort)
	}
	if cfg.CachePath != "" {
		fmt.Printf("  Artifact cache: %s\n", cfg.CachePath)
	}

	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
