package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0x-stone/clauseguard/pkg/qa"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the NDPA",
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		if !interactive && len(args) == 0 {
			return errors.New("give a question or use -i")
		}

		logger := newLogger()
		defer logger.Sync()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		rt, err := newRuntime(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		assistant, err := rt.assistant(ctx)
		if err != nil {
			return err
		}

		if !interactive {
			answer, err := assistant.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		}
		return chatLoop(ctx, assistant)
	},
}

func chatLoop(ctx context.Context, assistant *qa.Assistant) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("\n---------------------------------------------------------")
	fmt.Println("ClauseGuard NDPA assistant. Ask about the Data Protection Act.")
	fmt.Println("Example: 'When must a data breach be reported?'")
	fmt.Println("Type 'quit' or 'exit' to stop.")
	fmt.Println("---------------------------------------------------------")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "quit" || input == "exit" {
			return nil
		}
		if input == "" {
			continue
		}

		fmt.Print("Thinking... ")
		answer, err := assistant.Ask(ctx, input)
		fmt.Print("\r\033[K")
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n", answer)
	}
}

func init() {
	askCmd.Flags().BoolP("interactive", "i", false, "Start an interactive session")
	rootCmd.AddCommand(askCmd)
}
