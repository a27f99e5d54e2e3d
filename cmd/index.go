package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/chunker"
	"github.com/0x-stone/clauseguard/pkg/oracle"
	"github.com/0x-stone/clauseguard/pkg/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the NDPA question-answering index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Chunk and embed an NDPA text corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		corpusPath, _ := cmd.Flags().GetString("corpus")
		outPath, _ := cmd.Flags().GetString("out")
		lexical, _ := cmd.Flags().GetBool("lexical")
		if corpusPath == "" || outPath == "" {
			return fmt.Errorf("--corpus and --out are required")
		}

		logger := newLogger()
		defer logger.Sync()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		corpus, err := os.ReadFile(corpusPath)
		if err != nil {
			return err
		}
		ch, err := chunker.New(chunker.Config{
			ChunkSize:    cfg.Analysis.ChunkSize,
			ChunkOverlap: cfg.Analysis.ChunkOverlap,
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var embedder retrieval.Embedder
		model := cfg.Retrieval.EmbeddingModel
		if !lexical {
			keys := cfg.APIKeys("gemini")
			if len(keys) == 0 {
				return fmt.Errorf("embedding needs a gemini API key; pass --lexical to skip embeddings")
			}
			p, err := oracle.NewGeminiProvider(ctx, keys[0], "")
			if err != nil {
				return err
			}
			defer p.Close()
			embedder = retrieval.NewGeminiEmbedder(p.Client(), model)
		}

		ix, err := retrieval.BuildIndex(ctx, string(corpus), corpusPath, ch, embedder, model)
		if err != nil {
			return err
		}
		if err := ix.Save(outPath); err != nil {
			return err
		}
		logger.Info("index written",
			zap.String("path", outPath),
			zap.Int("passages", len(ix.Documents)),
			zap.Bool("embedded", ix.HasEmbeddings()))
		return nil
	},
}

func init() {
	indexBuildCmd.Flags().String("corpus", "", "Plain text NDPA corpus")
	indexBuildCmd.Flags().String("out", "", "Output index file")
	indexBuildCmd.Flags().Bool("lexical", false, "Skip embeddings and use keyword search")
	indexCmd.AddCommand(indexBuildCmd)
	rootCmd.AddCommand(indexCmd)
}
