package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiToken  string
	timeout   time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kvctl",
		Short: "kvctl - command line client for the kvstore API",
		Long:  "A command line client for the kvstore HTTP API: read, write and expire JSON values by key.",
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("KVCTL_SERVER", "http://localhost:8080"), "Base URL of the kvstore server")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", envOr("KVCTL_TOKEN", ""), "Bearer token or API token for authenticated endpoints")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		getCmd(),
		setCmd(),
		deleteCmd(),
		cleanupCmd(),
		auditCmd(),
		healthCmd(),
		tokenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getCmd() *cobra.Command {
	var (
		stale bool
		full  bool
	)

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Fetch the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/kv/" + url.PathEscape(args[0])
			if cmd.Flags().Changed("stale") {
				path += fmt.Sprintf("?stale=%t", stale)
			}

			body, err := newClient().Get(context.Background(), path)
			if err != nil {
				return err
			}

			if full {
				var out bytes.Buffer
				if err := json.Indent(&out, body, "", "  "); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
				fmt.Println(out.String())
				return nil
			}

			var entry struct {
				Value json.RawMessage `json:"value"`
			}
			if err := json.Unmarshal(body, &entry); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			fmt.Println(string(entry.Value))
			return nil
		},
	}

	cmd.Flags().BoolVar(&stale, "stale", false, "Override the server's stale-read policy for this read")
	cmd.Flags().BoolVar(&full, "full", false, "Print the full entry including expiry metadata")
	return cmd
}

func setCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Store a JSON value under a key",
		Long:  "Stores a JSON value under a key. The value is taken from the argument, or read from stdin when the argument is omitted or '-'.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			var raw []byte
			if len(args) == 2 && args[1] != "-" {
				raw = []byte(args[1])
			} else {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				raw = bytes.TrimSpace(data)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("value must be valid JSON")
			}

			reqBody := map[string]any{"value": json.RawMessage(raw)}
			if cmd.Flags().Changed("ttl") {
				reqBody["ttl_ms"] = ttl.Milliseconds()
			}

			path := "/api/v1/kv/" + url.PathEscape(key)
			if _, err := newClient().Put(context.Background(), path, reqBody); err != nil {
				return err
			}

			fmt.Printf("Key '%s' set\n", key)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Time-to-live (e.g. 30s, 5m); omit for no expiry")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Delete a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/kv/" + url.PathEscape(args[0])
			if _, err := newClient().Delete(context.Background(), path); err != nil {
				return err
			}
			fmt.Printf("Key '%s' deleted\n", args[0])
			return nil
		},
	}
}
