package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legalsearch/legalrag/common/logger"
	"github.com/legalsearch/legalrag/schema"
)

var (
	analyzeCaseID string
	analyzeFile   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a case and print the dual-audience result as JSON",
	Long: `Analyze a case and print the dual-audience result as JSON.

Examples:
  legalrag analyze --cases ./cases.json --case-id case-7
  legalrag analyze --file ./judgment.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze()
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCaseID, "case-id", "", "id of a case from --cases")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "path to a judgment text file to analyze ad hoc")
}

func runAnalyze() error {
	if analyzeCaseID == "" && analyzeFile == "" {
		return fmt.Errorf("one of --case-id or --file is required")
	}

	client, cases, err := buildClient()
	if err != nil {
		return err
	}
	defer logger.Sync()

	caseID := analyzeCaseID
	if analyzeFile != "" {
		data, err := os.ReadFile(analyzeFile)
		if err != nil {
			return fmt.Errorf("read judgment file failed, err: %w", err)
		}
		// Ad hoc files get a synthetic record keyed by the file name.
		caseID = "file:" + filepath.Base(analyzeFile)
		record := schema.CaseRecord{
			ID:      caseID,
			Title:   strings.TrimSuffix(filepath.Base(analyzeFile), filepath.Ext(analyzeFile)),
			Content: string(data),
		}
		cases.PutCase(record)
	}

	result, err := client.AnalyzeCase(context.Background(), caseID)
	if err != nil {
		return err
	}
	return printJSON(result)
}
