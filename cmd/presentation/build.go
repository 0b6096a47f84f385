package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Lllllllleong/presentationflow/internal/config"
	"github.com/Lllllllleong/presentationflow/internal/services"
	"github.com/spf13/cobra"
)

var (
	outputPath string
	provider   string
	model      string
)

var buildCmd = &cobra.Command{
	Use:   "build [files...]",
	Short: "Summarize files into a presentation PDF",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.WithBackend(provider, model))
		if err != nil {
			return err
		}

		docs, err := readSources(args, cfg.Extraction.MaxFileSize)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pipeline, backend, err := services.BuildPipeline(ctx, cfg, slog.Default())
		if err != nil {
			return err
		}
		defer backend.Close()

		res, err := pipeline.Run(ctx, docs)
		if res != nil {
			reportSkipped(cmd.ErrOrStderr(), res.FileErrors)
		}
		if err != nil {
			return err
		}

		out := outputPath
		if out == "" {
			out = res.Document.Filename
		}
		if err := os.WriteFile(out, res.Document.Bytes, 0644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		unit := "pages"
		if res.Document.PageCount == 1 {
			unit = "page"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d %s)\n", out, res.Document.PageCount, unit)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default presentation.pdf)")
	buildCmd.Flags().StringVar(&provider, "provider", "", "backend: vertex, gemini, openai or ollama")
	buildCmd.Flags().StringVar(&model, "model", "", "backend model name")
	rootCmd.AddCommand(buildCmd)
}
