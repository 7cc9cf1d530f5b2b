package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"text2ppt/internal/config"
	"text2ppt/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "text2ppt",
	Short: "Text2PPT - turn a prompt into a presentation",
	Long: `text2ppt sends a prompt, an optional document, images and a reference
link to the presentation generation service, then shows the slides in the
terminal or saves the .pptx it returns.

Signed-in users can have the presentation emailed instead and keep a chat
history.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize(logging.Options{
			Dir:        cfg.LogsDir(),
			File:       cfg.Logging.File,
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			DebugMode:  cfg.Logging.DebugMode,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return err
		}
		return logging.InitAudit()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		_ = logging.Sync()
		logging.CloseAudit()
	},
	RunE: runInteractive,
}

// loadConfig reads --config (or the default path) and validates it.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.text2ppt/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Overall timeout for non-interactive commands (0 = none)")

	// Generate flags
	generateCmd.Flags().StringVarP(&genDoc, "doc", "d", "", "Document to attach (.pdf, .docx, .txt)")
	generateCmd.Flags().StringSliceVarP(&genImages, "image", "i", nil, "Image to attach (repeatable)")
	generateCmd.Flags().StringVarP(&genReference, "reference", "r", "", "Reference link or text")
	generateCmd.Flags().BoolVar(&genEmail, "email", false, "Email the presentation instead of returning it (signed-in users)")
	generateCmd.Flags().StringVarP(&genOutDir, "out-dir", "o", "", "Directory for downloaded presentations (default: download.directory)")
	generateCmd.Flags().StringVar(&genSaveDeck, "save-deck", "", "Write a returned slide deck as JSON to this file")

	// View flags
	viewCmd.Flags().BoolVar(&viewPlain, "plain", false, "Print the slides instead of opening the viewer")

	// Auth flags
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (or set TEXT2PPT_PASSWORD)")

	// History flags
	historyCmd.Flags().StringVarP(&historySearch, "search", "s", "", "Only show chats whose title or preview contains this text")

	// Add commands to root
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
