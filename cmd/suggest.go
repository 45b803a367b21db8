package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/killallgit/sermon-clips/internal/services/suggestions"
	"github.com/killallgit/sermon-clips/pkg/config"
)

// suggestCmd runs the suggestion pipeline in the foreground
var suggestCmd = &cobra.Command{
	Use:   "suggest <sermon-id>",
	Short: "Generate clip suggestions for a sermon",
	Long: `Run the suggestion pipeline for one transcribed sermon and print the
stored suggestion set as JSON. The sermon's current suggestions are replaced.

Example:
  sermon-clips suggest 12
  sermon-clips suggest 12 --use-llm --method selection --provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().Bool("use-llm", false, "use an LLM strategy (defaults to the sermon's setting)")
	suggestCmd.Flags().String("method", "", "LLM method: scoring, selection, generation or full-context")
	suggestCmd.Flags().String("provider", "", "LLM provider: deepseek or openai")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid sermon id %q", args[0])
	}

	var opts suggestions.RunOptions
	if cmd.Flags().Changed("use-llm") {
		useLLM, _ := cmd.Flags().GetBool("use-llm")
		opts.UseLLM = &useLLM
	}
	opts.Method, _ = cmd.Flags().GetString("method")
	opts.Provider, _ = cmd.Flags().GetString("provider")

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	application, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	result, err := application.suggestions.Run(cmd.Context(), uint(id), opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
