package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdulachik/novelquiz/internal/app"
	"github.com/abdulachik/novelquiz/internal/config"
	"github.com/abdulachik/novelquiz/internal/quiz"
)

var (
	quizChapter  int
	quizPage     int
	quizProgress float64
	quizCFI      string
	quizNodeID   string
	quizJSON     bool
)

var quizCmd = &cobra.Command{
	Use:   "quiz <file.epub>",
	Short: "Generate a quiz from an EPUB file",
	Long: `Generate a quiz node from a local EPUB file.

Content is selected by --chapter, then --cfi, then --page, then --progress.
Without an API key for the configured provider the built-in mock quiz is
returned.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuiz,
}

func init() {
	quizCmd.Flags().IntVar(&quizChapter, "chapter", 0, "Chapter index (0-based, real chapters only)")
	quizCmd.Flags().IntVar(&quizPage, "page", 1, "Estimated page number")
	quizCmd.Flags().Float64Var(&quizProgress, "progress", 0, "Reading progress percentage (0-100)")
	quizCmd.Flags().StringVar(&quizCFI, "cfi", "", "EPUB CFI of the reading position")
	quizCmd.Flags().StringVar(&quizNodeID, "node-id", "", "Node id to assign to the quiz")
	quizCmd.Flags().BoolVar(&quizJSON, "json", false, "Print the quiz node as JSON")
	rootCmd.AddCommand(quizCmd)
}

func runQuiz(cmd *cobra.Command, args []string) error {
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

	loc := quiz.Locator{CFI: quizCFI, NodeID: quizNodeID}
	flags := cmd.Flags()
	if flags.Changed("chapter") {
		loc.ChapterIndex = &quizChapter
	}
	if flags.Changed("page") {
		loc.PageNumber = &quizPage
	}
	if flags.Changed("progress") {
		loc.Progress = &quizProgress
	}

	node, err := a.Quiz.Generate(ctx, book.ID, loc)
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}

	if quizJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(node)
	}

	printNode(node)
	return nil
}

func printNode(node *quiz.Node) {
	fmt.Printf("%s (%s)\n", node.Speaker, node.ID)
	if node.Text != "" {
		fmt.Println()
		fmt.Println(node.Text)
	}
	fmt.Println()
	fmt.Println(node.Summary)

	for i, q := range node.Questions {
		fmt.Println()
		fmt.Printf("%d. %s\n", i+1, q.Question)
		for _, c := range q.Choices {
			marker := " "
			if c.IsCorrect {
				marker = "*"
			}
			fmt.Printf("   %s %s\n", marker, c.Text)
		}
	}
	fmt.Println()
	fmt.Printf("Next: %s\n", node.Next)
}
