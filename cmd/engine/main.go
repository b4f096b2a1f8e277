// Command engine runs the JobSentry engine: the local HTTP API, the
// scheduled mailbox import and one-shot CLI helpers.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"jobsentry-engine/internal/config"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:           "engine",
	Short:         "JobSentry engine",
	Long:          "JobSentry checks job listings for signs of fraud and tracks applications imported from your mailbox.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	def := os.Getenv("JOBSENTRY_DATA_DIR")
	if def == "" {
		def = "."
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", def, "Directory holding config.yml, the database and lock files")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig seeds and reads <data-dir>/config.yml. The returned loader
// re-reads it the same way, for reloads after PUT /config.
func loadConfig() (string, config.Config, func() (config.Config, error), error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", config.Config{}, nil, err
	}
	userCfgPath, err := config.EnsureUserConfig(dataDir, "")
	if err != nil {
		return "", config.Config{}, nil, fmt.Errorf("config bootstrap failed: %w", err)
	}

	load := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, fmt.Errorf("config load failed (%s): %w", userCfgPath, err)
		}
		config.ApplyEnv(&cfg)
		cfg, vr := config.NormalizeAndValidate(cfg)
		for _, w := range vr.Warnings {
			logWarn(w)
		}
		if !vr.OK() {
			errs := make([]error, 0, len(vr.Errors))
			for _, e := range vr.Errors {
				errs = append(errs, errors.New(e))
			}
			return cfg, fmt.Errorf("invalid config %s: %w", userCfgPath, errors.Join(errs...))
		}
		return cfg, nil
	}

	cfg, err := load()
	if err != nil {
		return "", cfg, nil, err
	}
	return userCfgPath, cfg, load, nil
}
