package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/config"
	"github.com/0x-stone/clauseguard/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "clauseguard",
	Short: "NDPA privacy policy compliance checker",
	Long: `ClauseGuard grades a privacy policy against the Nigeria Data Protection
Act 2023 requirement checklist and answers questions about the Act.`,
	SilenceUsage: true,
}

var (
	DebugMode  bool
	ConfigPath string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&ConfigPath, "config", "", "Config file (default ~/.clauseguard/config.yaml)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger() *zap.Logger {
	return logging.New(DebugMode)
}
