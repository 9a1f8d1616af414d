package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdulachik/novelquiz/internal/app"
	"github.com/abdulachik/novelquiz/internal/config"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters <file.epub>",
	Short: "List the chapters of an EPUB file",
	Long: `List the real chapters of a local EPUB file, as served by
GET /api/upload/:bookId/chapters, with the estimated page count.`,
	Args: cobra.ExactArgs(1),
	RunE: runChapters,
}

func init() {
	rootCmd.AddCommand(chaptersCmd)
}

func runChapters(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.ValidateForQuiz(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer a.Close()

	book, err := a.OpenFile(args[0])
	if err != nil {
		return err
	}

	chapters, err := a.Accessor.Chapters(ctx, book.ID)
	if err != nil {
		return fmt.Errorf("list chapters: %w", err)
	}

	md, err := a.Accessor.BookMetadata(ctx, book.ID)
	if err != nil {
		return fmt.Errorf("estimate pages: %w", err)
	}

	fmt.Printf("%s\n", args[0])
	fmt.Printf("  Spine items: %d\n", md.SpineItems)
	fmt.Printf("  Estimated pages: %d\n", md.TotalPages)
	fmt.Println()

	if len(chapters) == 0 {
		fmt.Println("No numbered chapters found.")
		return nil
	}

	fmt.Println("Chapters:")
	for _, ch := range chapters {
		fmt.Printf("  [%d] %s\n", ch.Index, ch.Title)
	}

	return nil
}
