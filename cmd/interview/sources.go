package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List all configured crawl sources",
	Long:  "Reads the config and prints a table of all configured crawl sources.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-20s %-10s %-10s %s\n", "Source", "Max", "Status", "URL")
	fmt.Println(strings.Repeat("─", 72))

	enabled, disabled := 0, 0
	for _, s := range cfg.Crawler.Sources {
		status := "enabled"
		if !s.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		limit := "all"
		if s.MaxItems > 0 {
			limit = fmt.Sprint(s.MaxItems)
		}
		fmt.Printf("%-20s %-10s %-10s %s\n", s.Name, limit, status, s.URL)
		if len(s.Keywords) > 0 {
			fmt.Printf("  keywords: %s\n", strings.Join(s.Keywords, ", "))
		}
	}

	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", len(cfg.Crawler.Sources), enabled, disabled)
	return nil
}
