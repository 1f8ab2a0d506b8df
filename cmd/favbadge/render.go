package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/favbadge/internal/compositor"
	"github.com/jmylchreest/favbadge/internal/loader"
)

var renderOpts struct {
	output  string
	timeout time.Duration
	badge   badgeFlags
}

var renderCmd = &cobra.Command{
	Use:   "render <icon>",
	Short: "Draw the badge onto an icon once",
	Long: `Draw the notification badge onto an icon and write the result.

The icon may be a file path, a file:// URL or a data: URI in PNG, JPEG, GIF,
BMP, WebP or ICO format. The output is square, as wide as the source.

Without --output the badged icon is printed to stdout as a data URI.

Examples:
  favbadge render favicon.ico -o badged.png
  favbadge render logo.png --position top-left --color "#0a84ff" --format ico -o favicon.ico`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOpts.output, "output", "o", "",
		"Write the badged icon to this file instead of stdout")
	renderCmd.Flags().DurationVar(&renderOpts.timeout, "timeout", 10*time.Second,
		"Maximum time to spend decoding the icon")
	renderOpts.badge.register(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	renderOpts.badge.apply(cmd, cfg)
	opts, err := cfg.BadgeOptions()
	if err != nil {
		return err
	}

	comp, err := compositor.New(opts)
	if err != nil {
		return fmt.Errorf("invalid badge options: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), renderOpts.timeout)
	defer cancel()

	img, err := loader.NewSourceDecoder().Decode(ctx, args[0])
	if err != nil {
		return err
	}

	if renderOpts.output == "" {
		icon, err := comp.Render(img)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), icon)
		return nil
	}

	surface, err := comp.Compose(img)
	if err != nil {
		return err
	}
	data, err := compositor.Encode(surface, opts.Format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(renderOpts.output, data, 0644); err != nil {
		return err
	}

	b := surface.Bounds()
	logger.Info("rendered icon", "source", args[0], "output", renderOpts.output)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d %s, %s)\n",
		renderOpts.output, b.Dx(), b.Dy(), opts.Format, humanize.Bytes(uint64(len(data))))
	return nil
}
