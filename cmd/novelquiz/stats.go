package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdulachik/novelquiz/internal/config"
	"github.com/abdulachik/novelquiz/internal/db"
)

var statsLimit int64

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quiz generation statistics",
	Long:  `Display how many quizzes were generated, by mode, and the most recent generations.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Int64Var(&statsLimit, "recent", 10, "Number of recent generations to list")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := db.NewStore(ctx, cfg.DatabasePath, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	// Ensure migrations are run
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	total, err := store.CountGenerations(ctx)
	if err != nil {
		return fmt.Errorf("count generations: %w", err)
	}

	byMode, err := store.CountGenerationsByMode(ctx)
	if err != nil {
		return fmt.Errorf("count generations by mode: %w", err)
	}

	recent, err := store.ListRecentGenerations(ctx, statsLimit)
	if err != nil {
		return fmt.Errorf("list recent generations: %w", err)
	}

	// Print stats
	fmt.Println("=== novelquiz Statistics ===")
	fmt.Println()
	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	fmt.Println()
	fmt.Println("Generations:")
	fmt.Printf("  Total: %d\n", total)

	if len(byMode) > 0 {
		fmt.Println("  By mode:")
		for _, row := range byMode {
			fmt.Printf("    %s: %d\n", row.Mode, row.Count)
		}
	}
	fmt.Println()

	if len(recent) > 0 {
		fmt.Println("Recent:")
		for _, g := range recent {
			line := fmt.Sprintf("  %s  %-8s %s  %s=%s  questions=%d  %dms",
				g.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				g.Mode, g.BookID, g.LocatorKind, g.LocatorValue, g.QuestionCount, g.DurationMs)
			if g.ErrorMessage.Valid {
				line += "  error=" + g.ErrorMessage.String
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	return nil
}
