package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rdflg/rdflg/internal/infra/export"
)

var (
	exportOut    string
	exportLimit  int
	exportUpload bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write recent analyses to a Parquet file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer func() { _ = a.close(ctx) }()

		recs, err := a.repo.Latest(ctx, exportLimit)
		if err != nil {
			return fmt.Errorf("loading analyses: %w", err)
		}
		if err := export.WriteAnalysesFile(recs, exportOut); err != nil {
			return err
		}
		logger.Info("export written", zap.String("path", exportOut), zap.Int("records", len(recs)))

		if !exportUpload {
			return nil
		}
		if a.store == nil {
			return fmt.Errorf("--upload needs minio.enabled in the config")
		}
		key := fmt.Sprintf("exports/%s/%s", time.Now().UTC().Format("2006-01-02"), filepath.Base(exportOut))
		url, err := a.store.UploadAndCleanup(ctx, exportOut, key)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
		return err
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "analyses.parquet", "Output file")
	exportCmd.Flags().IntVarP(&exportLimit, "limit", "n", 1000, "Newest records to export")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "Upload the file to object storage and remove the local copy")
}
