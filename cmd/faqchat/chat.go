package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qvu3/bb-chatbot/internal/answer"
	"github.com/qvu3/bb-chatbot/internal/faq"
)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, corpus, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a, corpus)
		},
	}
}

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, corpus, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("no query provided")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.Answer(cmd.Context(), query, corpus))
			return err
		},
	}
}

// runChat reads questions line by line until EOF, "quit" or "exit".
func runChat(ctx context.Context, in io.Reader, out io.Writer, a answer.Answerer, corpus faq.Corpus) error {
	fmt.Fprintln(out, "Black Belt Prep FAQ Chatbot")
	fmt.Fprintln(out, "Type 'quit' or 'exit' to end the conversation.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "quit", "exit":
			return nil
		case "":
			continue
		}
		fmt.Fprintf(out, "Chatbot: %s\n", a.Answer(ctx, line, corpus))
	}
}
