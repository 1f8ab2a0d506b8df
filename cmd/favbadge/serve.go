package main

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/favbadge/internal/config"
	"github.com/jmylchreest/favbadge/internal/dbus"
	"github.com/jmylchreest/favbadge/internal/favicon"
	"github.com/jmylchreest/favbadge/internal/server"
	"github.com/jmylchreest/favbadge/internal/sink"
	"github.com/jmylchreest/favbadge/internal/watch"
)

var serveOpts struct {
	listen string
	title  string
	dbus   bool
	watch  bool
	badge  badgeFlags
}

var serveCmd = &cobra.Command{
	Use:   "serve [icon]",
	Short: "Serve a page whose favicon blinks while notifying",
	Long: `Serve a page whose favicon shows a blinking badge while a notification
is pending.

The page follows the badge over a websocket and cancels the notification when
the tab becomes visible. Notifications can also be triggered with:

  curl -X POST http://127.0.0.1:8787/notify
  curl -X POST http://127.0.0.1:8787/cancel

With --dbus, desktop notifications matching the [trigger] section of the
config start the badge too.

The icon defaults to the "source" config value. Local files are inlined as data
URIs and reloaded when they change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveOpts.listen, "listen", "",
		"Address to listen on (default from config: 127.0.0.1:8787)")
	serveCmd.Flags().StringVar(&serveOpts.title, "title", "favbadge", "Page title")
	serveCmd.Flags().BoolVar(&serveOpts.dbus, "dbus", false,
		"Notify on desktop notifications from the session bus")
	serveCmd.Flags().BoolVar(&serveOpts.watch, "watch", true,
		"Reload the icon when its file changes")
	serveOpts.badge.register(serveCmd)
}

// localIconPath returns the file path src refers to, if it is a local file.
func localIconPath(src string) (string, bool) {
	if strings.HasPrefix(src, "data:") {
		return "", false
	}
	if strings.HasPrefix(src, "file://") {
		u, err := url.Parse(src)
		if err != nil || u.Path == "" {
			return "", false
		}
		return u.Path, true
	}
	if strings.Contains(src, "://") {
		return "", false
	}
	return src, true
}

func runServe(cmd *cobra.Command, args []string) error {
	serveOpts.badge.apply(cmd, cfg)
	if cmd.Flags().Changed("listen") {
		cfg.Server.Listen = serveOpts.listen
	}
	if cmd.Flags().Changed("dbus") {
		cfg.Trigger.DBus = serveOpts.dbus
	}
	if cmd.Flags().Changed("watch") {
		cfg.Watch.Enabled = serveOpts.watch
	}
	if len(args) == 1 {
		cfg.Source = args[0]
	}
	if cfg.Source == "" {
		return fmt.Errorf("no icon given: pass one as an argument or set source in %s", configPathForHelp())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := cfg.BadgeOptions()
	if err != nil {
		return err
	}

	// Browsers cannot load the server's files, so local icons are inlined
	icon := cfg.Source
	path, local := localIconPath(icon)
	if local {
		if icon, err = watch.ReadIcon(path); err != nil {
			return fmt.Errorf("failed to read icon: %w", err)
		}
	}

	hub := sink.NewHub(logger)
	notifier, err := favicon.New(icon, hub, opts,
		favicon.WithLogger(logger),
		favicon.WithErrorHandler(func(err error) {
			logger.Error("badge unavailable", "error", err)
		}),
	)
	if err != nil {
		return err
	}
	defer notifier.Close()

	if local && cfg.Watch.Enabled {
		watcher, err := watch.NewFileWatcher(path, notifier.Favicon().Set, logger)
		if err != nil {
			return fmt.Errorf("failed to create icon watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			logger.Warn("failed to watch icon", "file", path, "error", err)
		}
		defer func() { _ = watcher.Stop() }()
	}

	if cfg.Trigger.DBus {
		filter, err := dbus.NewFilter(cfg.Trigger.Apps, cfg.Trigger.MinUrgency, cfg.Trigger.SkipTransient)
		if err != nil {
			return err
		}
		monitor := dbus.NewMonitor(filter, logger)
		monitor.SetNotifyHandler(func(n *dbus.Notification) {
			logger.Info("desktop notification", "app", n.AppName, "summary", n.Summary)
			notifier.Notify()
		})
		if err := monitor.Start(); err != nil {
			logger.Warn("desktop notification trigger unavailable", "error", err)
		} else {
			defer func() { _ = monitor.Stop() }()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(notifier, hub, serveOpts.title, logger)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s/\n", cfg.Source, cfg.Server.Listen)
	return srv.ListenAndServe(ctx, cfg.Server.Listen)
}

func configPathForHelp() string {
	if globalOpts.configPath != "" {
		return globalOpts.configPath
	}
	return config.ConfigPath()
}
