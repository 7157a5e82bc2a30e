package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	appanalysis "github.com/rdflg/rdflg/internal/application/analysis"
)

var (
	analyzeFile       string
	analyzeService    string
	analyzeEnterprise bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one ToS document and print the result as JSON",
	Long:  "Runs the full pipeline once. Reads --file, or stdin when --file is empty or \"-\".",
	RunE: func(cmd *cobra.Command, _ []string) error {
		text, err := readInput(cmd.InOrStdin(), analyzeFile)
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg, logger, true)
		if err != nil {
			return err
		}
		defer func() { _ = a.close(context.Background()) }()

		c := appanalysis.AnalyzeCommand{Text: text, ServiceName: analyzeService}
		var out any
		if analyzeEnterprise {
			out, err = a.analysis.Compare(ctx, c)
		} else {
			out, err = a.analysis.Analyze(ctx, c)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "ToS text file (default stdin)")
	analyzeCmd.Flags().StringVarP(&analyzeService, "service", "s", "", "Service name")
	analyzeCmd.Flags().BoolVar(&analyzeEnterprise, "enterprise", false, "Run the enterprise comparison instead")
}
