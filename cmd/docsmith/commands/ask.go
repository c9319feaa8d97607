package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docsmith-ai/docsmith/internal/answer"
	"github.com/docsmith-ai/docsmith/internal/embedder"
	"github.com/docsmith-ai/docsmith/internal/logging"
	"github.com/docsmith-ai/docsmith/internal/provider"
	"github.com/docsmith-ai/docsmith/internal/rag"
)

// NewAskCmd constructs the `docsmith ask` command, which answers a natural
// language question from the ingested corpus.
func NewAskCmd() *cobra.Command {
	var topK int
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the ingested documents",
		Long: `Ask a natural language question. The question is embedded, the closest
chunks are fetched from the vector store, and the chat model answers using
only that context.

ANSWER_LANGUAGE selects the answer language (default: English).

Examples:
  docsmith ask "what is the total on the March invoice?"
  docsmith ask --top-k 5 "who signed the contract?"
  docsmith ask --sources "when does the lease expire?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			qs, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer qs.Close()

			retriever, err := rag.NewRetriever(emb, qs, getEnvInt("ANSWER_TOP_K", 0))
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			answerer, err := answer.New(answer.Config{
				Retriever:        retriever,
				Model:            chatModel,
				Language:         os.Getenv("ANSWER_LANGUAGE"),
				MaxContextTokens: getEnvInt("ANSWER_CONTEXT_TOKENS", 0),
				Logger:           log,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			result, err := answerer.Ask(ctx, strings.Join(args, " "), topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Answer)

			if showSources && len(result.Hits) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "Sources:")
				for _, hit := range result.Hits {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-40s distance=%.4f\n", hit.ID, hit.Distance)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default: 10)")
	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the retrieved chunks backing the answer")

	return cmd
}
