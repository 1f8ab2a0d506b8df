package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/favbadge/internal/server"
)

var clientOpts struct {
	server string
	json   bool
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Start the badge on a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callServer(cmd, http.MethodPost, "/notify")
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Stop the badge on a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callServer(cmd, http.MethodPost, "/cancel")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the badge state of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callServer(cmd, http.MethodGet, "/status")
	},
}

func init() {
	for _, c := range []*cobra.Command{notifyCmd, cancelCmd, statusCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVar(&clientOpts.server, "server", "",
			"Server address (default from config: 127.0.0.1:8787)")
		c.Flags().BoolVar(&clientOpts.json, "json", false, "Print the raw JSON status")
	}
}

func serverURL(path string) string {
	addr := clientOpts.server
	if addr == "" {
		addr = cfg.Server.Listen
	}
	if !strings.Contains(addr, "://") {
		if strings.HasPrefix(addr, ":") {
			addr = "127.0.0.1" + addr
		}
		addr = "http://" + addr
	}
	return strings.TrimSuffix(addr, "/") + path
}

func callServer(cmd *cobra.Command, method, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, serverURL(path), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach favbadge server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var st server.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("invalid status response: %w", err)
	}

	out := cmd.OutOrStdout()
	if clientOpts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(out, "state: %s\n", st.State)
	fmt.Fprintf(out, "clients: %d\n", st.Clients)
	fmt.Fprintf(out, "badge: %s %s, blink=%t every %s (%s)\n", st.Color, st.Position, st.Blink, st.Speed, st.Format)
	if st.IconSize != "" {
		fmt.Fprintf(out, "icon: %s\n", st.IconSize)
	}
	return nil
}
