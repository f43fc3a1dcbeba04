package main

import (
	"io"
	"os"

	"github.com/fpang/chroma-restore/internal/config"
	"github.com/fpang/chroma-restore/internal/logging"
	"github.com/fpang/chroma-restore/internal/metrics"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Persistent flags
var (
	configFlag      string
	modelFlag       string
	transportFlag   string
	validateKeyFlag bool
	metricsFlag     bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "chroma-cli",
	Short: "Colorize black and white photos with Gemini",
	Long: `Chroma CLI colorizes black and white photos from the terminal, renders
before/after comparison frames, and serves colorization as an MCP tool.

Examples:
  chroma-cli colorize grandma.jpg --hint "her dress was dark blue"
  chroma-cli colorize  # Interactive mode - opens a file picker and prompts for a hint
  chroma-cli compare --original scan.jpg --colorized restored.png --position 30
  chroma-cli mcp`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
		metrics.SetBinary("chroma-cli")
		// stdout carries command output (and the MCP protocol), so metrics
		// go to stderr or nowhere.
		if metricsFlag {
			metrics.SetSink(os.Stderr)
		} else {
			metrics.SetSink(io.Discard)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model to use (default from config)")
	rootCmd.PersistentFlags().StringVar(&transportFlag, "transport", "", "Gemini transport: sdk or rest (default from config)")
	rootCmd.PersistentFlags().BoolVar(&validateKeyFlag, "validate-key", false, "Validate the API key with a test call before colorizing")
	rootCmd.PersistentFlags().BoolVar(&metricsFlag, "metrics", false, "Write EMF metrics to stderr")

	rootCmd.AddCommand(colorizeCmd, compareCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
	}
	if transportFlag != "" {
		cfg.Gemini.Transport = transportFlag
	}
	return cfg, cfg.Validate()
}
