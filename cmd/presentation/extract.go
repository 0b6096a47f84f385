package main

import (
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/presentationflow/internal/services"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Print the tagged text that would be sent to the backend",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		docs, err := readSources(args, cfg.Extraction.MaxFileSize)
		if err != nil {
			return err
		}

		pipeline := services.NewPipeline(nil, nil, cfg.Extraction.Workers, slog.Default())
		texts, fileErrs, err := pipeline.ExtractAll(cmd.Context(), docs)
		if err != nil {
			return err
		}
		reportSkipped(cmd.ErrOrStderr(), fileErrs)

		agg := services.Aggregate(texts)
		fmt.Fprint(cmd.OutOrStdout(), agg.TaggedBody)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
