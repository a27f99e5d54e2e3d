package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/0x-stone/clauseguard/pkg/config"
	"github.com/0x-stone/clauseguard/pkg/oracle"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (providers, models, keys)",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Replace the API keys for a provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		keys, _ := cmd.Flags().GetStringSlice("key")
		if provider == "" || len(keys) == 0 {
			return fmt.Errorf("--provider and --key are required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		provider = strings.ToLower(provider)
		cfg.SetAPIKeys(provider, keys)
		if err := config.Save(ConfigPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("%d API key(s) saved for provider: %s\n", len(cfg.APIKeys(provider)), provider)
		return nil
	},
}

var addKeyCmd = &cobra.Command{
	Use:   "add-key",
	Short: "Add an API key to a provider's rotation",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		key, _ := cmd.Flags().GetString("key")
		if provider == "" || key == "" {
			return fmt.Errorf("--provider and --key are required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		provider = strings.ToLower(provider)
		cfg.AddAPIKey(provider, key)
		if err := config.Save(ConfigPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Provider %s now rotates %d key(s)\n", provider, len(cfg.APIKeys(provider)))
		return nil
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model",
	Short: "Set the active provider and model",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if provider != "" {
			cfg.SelectedProvider = strings.ToLower(provider)
		}
		if model != "" {
			cfg.SelectedModel = model
		}
		if err := config.Save(ConfigPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Active configuration updated: Provider=%s, Model=%s\n", cfg.SelectedProvider, cfg.SelectedModel)
		return nil
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List available models from the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		provider := cfg.SelectedProvider
		keys := cfg.APIKeys(provider)
		if len(keys) == 0 {
			return fmt.Errorf("no API key found for %s", provider)
		}

		fmt.Printf("Fetching models for %s...\n", provider)
		ctx := cmd.Context()
		p, err := oracle.NewProvider(ctx, oracle.ProviderConfig{
			Name:    provider,
			APIKey:  keys[0],
			BaseURL: cfg.Providers[provider].BaseURL,
		})
		if err != nil {
			return err
		}
		defer p.Close()

		models, err := p.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("fetch models: %w", err)
		}
		fmt.Printf("\nAvailable Models (%s):\n", provider)
		for _, m := range models {
			mark := " "
			if m == cfg.SelectedModel {
				mark = "*"
			}
			fmt.Printf("%s %s\n", mark, m)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with keys masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		masked := *cfg
		masked.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
		for name, p := range cfg.Providers {
			keys := make([]string, len(p.APIKeys))
			for i, k := range p.APIKeys {
				keys[i] = maskKey(k)
			}
			p.APIKeys = keys
			masked.Providers[name] = p
		}
		if masked.Cache.ArangoPassword != "" {
			masked.Cache.ArangoPassword = "****"
		}
		out, err := yaml.Marshal(&masked)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:4] + "..." + k[len(k)-4:]
}

func init() {
	setKeyCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic)")
	setKeyCmd.Flags().StringSliceP("key", "k", nil, "API key (repeat or comma separate for rotation)")

	addKeyCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic)")
	addKeyCmd.Flags().StringP("key", "k", "", "API key")

	setModelCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic)")
	setModelCmd.Flags().StringP("model", "m", "", "Model name")

	configCmd.AddCommand(setKeyCmd, addKeyCmd, setModelCmd, listModelsCmd, showCmd)
	rootCmd.AddCommand(configCmd)
}
