package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0x-stone/clauseguard/pkg/config"
	"github.com/0x-stone/clauseguard/pkg/oracle"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := bufio.NewScanner(os.Stdin)
		prompt := func(label string) string {
			fmt.Print(label)
			scanner.Scan()
			return strings.TrimSpace(scanner.Text())
		}

		fmt.Println("Welcome to ClauseGuard Setup")
		fmt.Println("----------------------------")

		fmt.Println("Step 1: Choose your AI Provider")
		for i, name := range oracle.Providers {
			fmt.Printf("%d. %s\n", i+1, name)
		}
		choice := strings.ToLower(prompt("Enter number or name > "))
		provider := ""
		if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(oracle.Providers) {
			provider = oracle.Providers[n-1]
		}
		for _, name := range oracle.Providers {
			if choice == name {
				provider = name
			}
		}
		if provider == "" {
			return fmt.Errorf("invalid provider choice %q", choice)
		}

		fmt.Printf("\nStep 2: Enter API keys for %s (comma separated for rotation)\n", provider)
		keys, err := config.ParseKeyList(prompt("> "))
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return fmt.Errorf("at least one API key is required")
		}

		fmt.Println("\nStep 3: Validating key and fetching available models...")
		ctx := cmd.Context()
		p, err := oracle.NewProvider(ctx, oracle.ProviderConfig{Name: provider, APIKey: keys[0]})
		if err != nil {
			return err
		}
		defer p.Close()

		var model string
		models, err := p.ListModels(ctx)
		if err != nil || len(models) == 0 {
			fmt.Printf("Warning: Could not fetch models from API: %v\n", err)
			model = prompt("Enter model name manually > ")
		} else {
			fmt.Printf("Retrieved %d models.\n", len(models))
			for i, m := range models {
				fmt.Printf("%d. %s\n", i+1, m)
			}
			idx, err := strconv.Atoi(prompt("Select Model (number) > "))
			if err != nil || idx < 1 || idx > len(models) {
				fmt.Println("Invalid selection. Using first available model.")
				idx = 1
			}
			model = models[idx-1]
		}

		fmt.Println("\nStep 4: Saving Configuration...")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.SelectedProvider = provider
		cfg.SelectedModel = model
		cfg.SetAPIKeys(provider, keys)
		if err := config.Save(ConfigPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println("----------------------------")
		fmt.Println("Setup Complete!")
		fmt.Printf("Provider: %s (%d key(s))\n", provider, len(keys))
		fmt.Printf("Model:    %s\n", model)
		fmt.Println("You can now run 'clauseguard analyze <url>' or 'clauseguard serve'")
		return nil
	},
}

func init() {
	configCmd.AddCommand(setupCmd)
}
