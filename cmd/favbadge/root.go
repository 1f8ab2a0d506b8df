// Package main provides the CLI entrypoint for favbadge.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/favbadge/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "favbadge",
	Short: "Blinking notification badges for favicons",
	Long: `favbadge draws a notification badge onto a favicon and blinks it.

It can render a badged icon once, or serve a page whose favicon blinks while
a notification is pending. Notifications are triggered over HTTP, from the
page itself, or from desktop notifications on the session bus.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file, .toml or .yaml (default: ~/.config/favbadge/config.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// badgeFlags are the badge settings that can override the config file.
type badgeFlags struct {
	size     int
	position string
	color    string
	speed    time.Duration
	static   bool
	format   string
}

func (f *badgeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.size, "size", 0, "Badge radius in pixels")
	cmd.Flags().StringVar(&f.position, "position", "",
		"Badge position (top-left, top-right, bottom-left, bottom-right, center)")
	cmd.Flags().StringVar(&f.color, "color", "", "Badge color, CSS name or hex")
	cmd.Flags().DurationVar(&f.speed, "speed", 0, "Full blink period")
	cmd.Flags().BoolVar(&f.static, "static", false, "Show the badge without blinking")
	cmd.Flags().StringVar(&f.format, "format", "", "Output encoding (png, ico)")
}

// apply copies the flags that were set on cmd into c.
func (f *badgeFlags) apply(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("size") {
		c.Badge.Size = f.size
	}
	if flags.Changed("position") {
		c.Badge.Position = f.position
	}
	if flags.Changed("color") {
		c.Badge.Color = f.color
	}
	if flags.Changed("speed") {
		c.Badge.Speed = config.Duration(f.speed)
	}
	if flags.Changed("static") {
		c.Badge.Blink = !f.static
	}
	if flags.Changed("format") {
		c.Badge.Format = f.format
	}
}
