package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/termbridge/termbridge/internal/aider"
	"github.com/termbridge/termbridge/internal/config"
	"github.com/termbridge/termbridge/internal/ui"
)

var editFiles []string

func init() {
	editCmd.Flags().StringArrayVarP(&editFiles, "file", "f", nil, "File to add to the edit context (repeatable)")
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(statusCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit [instruction]",
	Short: "Apply a repository edit through aider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		svc := newAiderService(cfg)
		defer svc.Stop()

		output, err := svc.Execute(cmd.Context(), args[0], editFiles)
		if err != nil {
			return fmt.Errorf("edit failed: %w", err)
		}
		if output != "" {
			fmt.Println(output)
		}
		printAiderStats(svc)
		return nil
	},
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Print the repository map from aider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		svc := newAiderService(cfg)
		defer svc.Stop()

		repoMap := svc.RepoMap(cmd.Context())
		if repoMap == "" {
			fmt.Fprintln(os.Stderr, ui.MutedStyle.Render("no repository map available"))
			return nil
		}
		fmt.Println(repoMap)
		printAiderStats(svc)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the aider subprocess state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		svc := newAiderService(cfg)
		if err := svc.Start(cmd.Context()); err != nil {
			fmt.Println(ui.ErrorStyle.Render("aider: " + err.Error()))
			return nil
		}
		defer svc.Stop()

		st := svc.Stats()
		fmt.Printf("%s %s\n", ui.HeaderStyle.Render("state:"), st.State)
		fmt.Printf("%s %d\n", ui.HeaderStyle.Render("pid:"), st.PID)
		fmt.Printf("%s %.1f MB\n", ui.HeaderStyle.Render("rss:"), float64(st.RSSBytes)/(1024*1024))
		fmt.Printf("%s %.1f%%\n", ui.HeaderStyle.Render("cpu:"), st.CPUPercent)
		return nil
	},
}

func newAiderService(cfg *config.Config) *aider.Service {
	wd, _ := os.Getwd()
	return aider.NewService(aider.Config{
		Command:        cfg.Aider.Command,
		Args:           cfg.Aider.Args,
		Model:          cfg.Aider.Model,
		WorkDir:        wd,
		CommandTimeout: cfg.Aider.CommandTimeout,
		StartupTimeout: cfg.Aider.StartupTimeout,
	}, nil)
}

func printAiderStats(svc *aider.Service) {
	if !showStats {
		return
	}
	st := svc.Stats()
	fmt.Fprintln(os.Stderr, ui.MutedStyle.Render(fmt.Sprintf(
		"aider: state=%s pid=%d rss=%.1fMB cpu=%.1f%%",
		st.State, st.PID, float64(st.RSSBytes)/(1024*1024), st.CPUPercent)))
}
