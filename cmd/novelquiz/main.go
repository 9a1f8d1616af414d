package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abdulachik/novelquiz/internal/config"
	"github.com/abdulachik/novelquiz/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "novelquiz",
	Short: "Turn EPUB books into visual novel quizzes",
	Long: `novelquiz serves an API that accepts EPUB uploads and generates
multiple-choice comprehension quizzes from the book's text with an LLM.`,
	SilenceUsage: true,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()
}

// newLogger builds the process logger from configuration.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
