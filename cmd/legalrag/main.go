package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	legalrag "github.com/legalsearch/legalrag"
	"github.com/legalsearch/legalrag/common/logger"
	"github.com/legalsearch/legalrag/config"
	"github.com/legalsearch/legalrag/schema"
)

var version = "dev"

var (
	cfgPath   string
	casesPath string
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:     "legalrag",
	Short:   "Legal case analysis with retrieval-augmented generation",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&casesPath, "cases", "", "path to a JSON file of case records to load")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// buildClient assembles the client from flags, env and config file. The
// case store is in-memory, optionally preloaded from --cases.
func buildClient() (*legalrag.Client, *legalrag.MemoryCaseStore, error) {
	// A missing .env file is fine; env vars may come from the shell.
	_ = godotenv.Load()
	if debug {
		logger.Development()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	cases := legalrag.NewMemoryCaseStore()
	if casesPath != "" {
		if err := loadCases(cases, casesPath); err != nil {
			return nil, nil, fmt.Errorf("load cases from %s failed, err: %w", casesPath, err)
		}
	}
	client, err := legalrag.NewClient(cfg, cases)
	if err != nil {
		return nil, nil, err
	}
	return client, cases, nil
}

func loadCases(store *legalrag.MemoryCaseStore, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var records []schema.CaseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decode case records failed, err: %w", err)
	}
	for _, r := range records {
		if r.ID == "" || r.Content == "" {
			return fmt.Errorf("case record needs id and content, got id=%q", r.ID)
		}
		store.PutCase(r)
	}
	logger.Infof("loaded %d case records from %s", len(records), path)
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output failed, err: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
