package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/docsmith-ai/docsmith/internal/logging"
)

// NewSourcesCmd constructs the `docsmith sources` command, which lists the
// documents recorded in the local ingest ledger.
func NewSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List ingested documents and their chunk counts",
		Long: `List every document recorded in the local ingest ledger, with its chunk
count and the time it was last ingested.

The ledger is advisory: it reflects what this machine has ingested, not the
full contents of a shared Qdrant collection.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			ledger := openLedger(log)
			if ledger == nil {
				return fmt.Errorf("sources: ledger is disabled or unavailable")
			}
			defer ledger.Close()

			infos, err := ledger.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("sources: %w", err)
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no documents ingested yet")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tCHUNKS\tINGESTED AT")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%s\n",
					info.Source, info.ChunkCount, info.IngestedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}
