package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/termbridge/termbridge/internal/config"
	"github.com/termbridge/termbridge/internal/llm"
	"github.com/termbridge/termbridge/internal/session"
	"github.com/termbridge/termbridge/internal/tools"
	"github.com/termbridge/termbridge/internal/ui"
)

var (
	generateModel       string
	generateStream      bool
	generateSystem      string
	generateToolsFile   string
	generateMaxTokens   int
	generateTemperature float32
)

func init() {
	generateCmd.Flags().StringVarP(&generateModel, "model", "m", "", "Model to use (overrides configured default)")
	generateCmd.Flags().BoolVar(&generateStream, "stream", false, "Stream output as it arrives")
	generateCmd.Flags().StringVar(&generateSystem, "system", "", "System prompt")
	generateCmd.Flags().StringVar(&generateToolsFile, "tools", "", "YAML file of tool declarations to expose")
	generateCmd.Flags().IntVar(&generateMaxTokens, "max-tokens", 0, "Maximum tokens to generate")
	generateCmd.Flags().Float32Var(&generateTemperature, "temperature", 0, "Sampling temperature")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Send a prompt to the selected backend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, err := readPrompt(args)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		model := generateModel
		if model == "" {
			model = cfg.Model
		}

		provider, err := llm.Select(model, cfg)
		if err != nil {
			return err
		}
		if provider == nil {
			return fmt.Errorf("model %q has no configured adapter; native backends are handled by the host", model)
		}

		req := llm.Request{
			Model:       model,
			MaxTokens:   generateMaxTokens,
			Temperature: generateTemperature,
		}
		if generateSystem != "" {
			req.Messages = append(req.Messages, llm.SystemText(generateSystem))
		}
		req.Messages = append(req.Messages, llm.UserText(prompt))

		if generateToolsFile != "" {
			specs, err := tools.Load(generateToolsFile)
			if err != nil {
				return err
			}
			req.Tools = specs
		}

		start := time.Now()
		var resp *llm.Response
		if generateStream {
			resp, err = runStreaming(cmd.Context(), provider, req)
		} else {
			resp, err = provider.Generate(cmd.Context(), req)
			if err == nil {
				printResponse(resp)
			}
		}
		if err != nil {
			return err
		}

		recordGeneration(cmd.Context(), cfg, provider, model, prompt, resp, time.Since(start))

		if showStats && resp.Usage != nil {
			fmt.Fprintln(os.Stderr, ui.MutedStyle.Render(fmt.Sprintf(
				"tokens: %d in, %d out (%d total), %.1fs",
				resp.Usage.InputTokens, resp.Usage.OutputTokens,
				resp.Usage.TotalTokens, time.Since(start).Seconds())))
		}
		return nil
	},
}

// readPrompt picks the prompt from the argument or, when absent, stdin.
func readPrompt(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("no prompt given")
	}
	return prompt, nil
}

// runStreaming drains the stream, printing text fragments as they
// arrive, and folds the fragments into one response for recording.
func runStreaming(ctx context.Context, provider llm.Provider, req llm.Request) (*llm.Response, error) {
	stream, err := provider.GenerateStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	final := &llm.Response{}
	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, part := range frag.Parts {
			if part.Type == llm.PartText {
				fmt.Print(part.Text)
			} else if part.Invocation != nil {
				printInvocation(part.Invocation)
			}
		}
		final.Parts = append(final.Parts, frag.Parts...)
		if frag.FinishReason != llm.FinishUnset {
			final.FinishReason = frag.FinishReason
		}
		if frag.Usage != nil {
			final.Usage = frag.Usage
		}
	}
	fmt.Println()
	return final, nil
}

func printResponse(resp *llm.Response) {
	for _, part := range resp.Parts {
		switch part.Type {
		case llm.PartText:
			fmt.Println(part.Text)
		case llm.PartInvocation:
			printInvocation(part.Invocation)
		}
	}
}

func printInvocation(inv *llm.Invocation) {
	args, err := json.Marshal(inv.Args)
	if err != nil {
		args = []byte("{}")
	}
	fmt.Println(ui.ToolCallStyle.Render(fmt.Sprintf("→ %s(%s)", inv.Name, args)))
}

func recordGeneration(ctx context.Context, cfg *config.Config, provider llm.Provider, model, prompt string, resp *llm.Response, elapsed time.Duration) {
	if !cfg.Session.Enabled {
		return
	}
	path, err := session.GetDBPath(cfg.Session)
	if err != nil {
		slog.Warn("session path unavailable", "error", err)
		return
	}
	store, err := session.NewSQLiteStore(path)
	if err != nil {
		slog.Warn("session store unavailable", "error", err)
		return
	}
	defer store.Close()

	g := &session.Generation{
		Provider:     provider.Name(),
		Model:        model,
		Prompt:       prompt,
		Parts:        resp.Parts,
		FinishReason: string(resp.FinishReason),
	}
	if resp.Usage != nil {
		g.InputTokens = resp.Usage.InputTokens
		g.OutputTokens = resp.Usage.OutputTokens
	}
	g.DurationMS = elapsed.Milliseconds()
	if err := store.Record(ctx, g); err != nil {
		slog.Warn("record generation", "error", err)
	}
}
