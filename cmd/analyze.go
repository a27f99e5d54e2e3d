package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0x-stone/clauseguard/pkg/engine"
	"github.com/0x-stone/clauseguard/pkg/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Grade a privacy policy URL against the NDPA checklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		baseline, _ := cmd.Flags().GetString("baseline")
		savePath, _ := cmd.Flags().GetString("save")

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

		analyzer, err := rt.analyzer(ctx)
		if err != nil {
			return err
		}

		url := args[0]
		res, err := analyzer.AnalyzeURL(ctx, url)
		if code := pipeline.OutcomeCode(err); code != "" {
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{"error": code})
			}
			return fmt.Errorf("%s: %w", code, err)
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res.Verdict); err != nil {
				return err
			}
		} else {
			if err := engine.NewReportRenderer().Render(os.Stdout, rt.engine.Registry().Standard(), url, res.Verdict); err != nil {
				return err
			}
		}

		if baseline != "" {
			snap, err := engine.LoadSnapshot(baseline)
			if err != nil {
				return fmt.Errorf("load baseline: %w", err)
			}
			printDiff(rt.engine.Compare(snap.Verdict, res.Verdict))
		}
		if savePath != "" {
			if err := engine.SaveSnapshot(savePath, url, res.Verdict); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Snapshot saved to %s\n", savePath)
		}
		return nil
	},
}

func printDiff(d engine.SnapshotDiff) {
	fmt.Printf("\n[CHANGES SINCE BASELINE] score %+.1f\n", d.ScoreDelta)
	for _, c := range d.Improved {
		fmt.Printf("  + %s: %s -> %s\n", c.Title, c.Before, c.After)
	}
	for _, c := range d.Regressed {
		fmt.Printf("  - %s: %s -> %s\n", c.Title, c.Before, c.After)
	}
	if len(d.Improved) == 0 && len(d.Regressed) == 0 {
		fmt.Println("  no requirement changed status")
	}
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "Print the verdict as JSON")
	analyzeCmd.Flags().String("baseline", "", "Compare against a saved snapshot")
	analyzeCmd.Flags().String("save", "", "Save the verdict as a snapshot")
	rootCmd.AddCommand(analyzeCmd)
}
