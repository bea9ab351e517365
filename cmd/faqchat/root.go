package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/qvu3/bb-chatbot/internal/answer"
	"github.com/qvu3/bb-chatbot/internal/config"
	"github.com/qvu3/bb-chatbot/internal/faq"
)

// options are shared by every subcommand.
type options struct {
	faqPath  string
	strategy string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "faqchat",
		Short: "Ask the Black Belt Prep FAQ chatbot from the terminal",
		Long: `faqchat answers questions from the FAQ corpus, either interactively
or one question at a time. Configuration is read from the environment and .env.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.faqPath, "faq", "", "FAQ corpus path (default FAQ_FILE_PATH)")
	root.PersistentFlags().StringVar(&opts.strategy, "strategy", "", "answer strategy: exact or generative (default ANSWER_STRATEGY)")

	root.AddCommand(newChatCmd(opts), newAskCmd(opts))
	return root
}

// setup loads configuration, the corpus and the answerer.
func (o *options) setup(ctx context.Context) (answer.Answerer, faq.Corpus, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if o.faqPath != "" {
		cfg.FAQPath = o.faqPath
	}
	if o.strategy != "" {
		cfg.Answer.Strategy = o.strategy
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	corpus, err := faq.Load(cfg.FAQPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load FAQ corpus: %w", err)
	}
	if len(corpus) == 0 {
		return nil, nil, fmt.Errorf("no FAQ entries found at %s", cfg.FAQPath)
	}
	return answer.NewFromConfig(ctx, cfg.Answer), corpus, nil
}
