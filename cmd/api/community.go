package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/rdflg/rdflg/internal/application/community"
	domain "github.com/rdflg/rdflg/internal/domain/analysis"
)

var communityTop int

var communityCmd = &cobra.Command{
	Use:   "community",
	Short: "Print the most reported issues across recent analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer func() { _ = a.close(ctx) }()

		return writeReport(cmd.OutOrStdout(), a.analysis.Community(ctx, communityTop))
	},
}

func writeReport(w io.Writer, rep community.Report) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Kind", "Rank", "Issue", "Reports"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	add := func(kind string, issues []domain.IssueCount) {
		for i, ic := range issues {
			data = append(data, []string{kind, strconv.Itoa(i + 1), ic.Label, strconv.Itoa(ic.Count)})
		}
	}
	add("red flag", rep.RedFlags)
	add("caution", rep.Cautions)
	add("positive", rep.Positives)

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Community reports analyzed: %d\n", rep.TotalReports)
	return err
}

func init() {
	communityCmd.Flags().IntVarP(&communityTop, "top", "n", 10, "Issues per kind")
}
