package cmd

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/killallgit/sermon-clips/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sermon-clips",
	Short: "Sermon Clips API server",
	Long: `Sermon Clips - clip suggestions and vertical renders for recorded sermons

The service ingests sermon transcripts, proposes short shareable clips
and renders the clips a reviewer keeps.

Features:
  • Heuristic clip candidates from timestamped transcripts
  • Optional LLM scoring, selection and generation (DeepSeek or OpenAI)
  • Review workflow with accept, reject and trim
  • Vertical preview and final renders with burned-in captions
  • Durable job queue with per-queue worker pools`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultConfigPath, "settings file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")
}

// skipConfig lists the commands that run without configuration
func skipConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return true
	}
	return false
}

// loadConfig loads .env files and the settings file before a command runs
func loadConfig(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	level, _ := flags.GetString("log-level")
	jsonLogs, _ := flags.GetBool("json-logs")
	if err := configureLogging(level, jsonLogs); err != nil {
		return err
	}

	if skipConfig(cmd) {
		return nil
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	path, _ := flags.GetString("config")
	config.SetConfigPath(path)
	if err := config.Init(); err != nil {
		return fmt.Errorf("error initializing config: %w", err)
	}

	// Flags win over the settings file
	if flags.Changed("log-level") {
		config.Set("logging.level", level)
	}
	if flags.Changed("json-logs") {
		config.Set("logging.json", jsonLogs)
	}
	if err := configureLogging(config.GetString("logging.level"), config.GetBool("logging.json")); err != nil {
		return err
	}

	config.Watch(func(fsnotify.Event) {
		if err := configureLogging(config.GetString("logging.level"), config.GetBool("logging.json")); err != nil {
			fmt.Fprintf(os.Stderr, "ignoring logging settings: %v\n", err)
		}
	})
	return nil
}
