package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/termbridge/termbridge/internal/config"
	"github.com/termbridge/termbridge/internal/session"
	"github.com/termbridge/termbridge/internal/ui"
)

var sessionsLimit int

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Number of generations to show")
	rootCmd.AddCommand(sessionsCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent recorded generations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		path, err := session.GetDBPath(cfg.Session)
		if err != nil {
			return err
		}
		store, err := session.NewSQLiteStore(path)
		if err != nil {
			return err
		}
		defer store.Close()

		gens, err := store.List(cmd.Context(), sessionsLimit)
		if err != nil {
			return err
		}
		if len(gens) == 0 {
			fmt.Println(ui.MutedStyle.Render("no recorded generations"))
			return nil
		}

		for _, g := range gens {
			prompt := g.Prompt
			if len(prompt) > 60 {
				prompt = prompt[:57] + "..."
			}
			fmt.Printf("%s %s %s %s\n",
				ui.MutedStyle.Render(g.CreatedAt.Format("2006-01-02 15:04")),
				ui.HeaderStyle.Render(g.Model),
				prompt,
				ui.MutedStyle.Render(fmt.Sprintf("(%d+%d tok, %dms)",
					g.InputTokens, g.OutputTokens, g.DurationMS)))
		}
		return nil
	},
}
