package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove all expired entries from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := newClient().Post(context.Background(), "/api/v1/admin/cleanup", nil)
			if err != nil {
				return err
			}

			var result struct {
				Removed int64 `json:"removed"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			fmt.Printf("Removed %d expired entries\n", result.Removed)
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	var (
		limit  int
		offset int
		action string
		key    string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}
			if action != "" {
				q.Set("action", action)
			}
			if key != "" {
				q.Set("key", key)
			}

			body, err := newClient().Get(context.Background(), "/api/v1/admin/audit?"+q.Encode())
			if err != nil {
				return err
			}

			var result struct {
				Logs []struct {
					Action    string    `json:"action"`
					Key       *string   `json:"key"`
					IPAddress string    `json:"ip_address"`
					Timestamp time.Time `json:"timestamp"`
				} `json:"logs"`
				Total int64 `json:"total"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}

			if len(result.Logs) == 0 {
				fmt.Println("No audit log entries")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIMESTAMP\tACTION\tKEY\tIP")
			for _, entry := range result.Logs {
				k := "-"
				if entry.Key != nil {
					k = *entry.Key
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					entry.Timestamp.Format("2006-01-02 15:04:05"),
					entry.Action,
					k,
					entry.IPAddress,
				)
			}
			w.Flush()
			fmt.Printf("Total: %d\n", result.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action (set, delete, cleanup, token_issued)")
	cmd.Flags().StringVar(&key, "key", "", "Filter by key")
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := newClient().Get(context.Background(), "/health")
			if err != nil {
				return err
			}

			var out bytes.Buffer
			if err := json.Indent(&out, body, "", "  "); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			fmt.Println(out.String())
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <api-token>",
		Short: "Exchange an API token for a bearer token",
		Long:  "Exchanges a configured API token for a short-lived bearer token. The token is printed to stdout so it can be captured, e.g. export KVCTL_TOKEN=$(kvctl token <api-token>).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := newClient().Post(context.Background(), "/api/v1/auth/token", map[string]string{"token": args[0]})
			if err != nil {
				return err
			}

			var tokens struct {
				AccessToken string `json:"access_token"`
				TokenType   string `json:"token_type"`
				ExpiresIn   int64  `json:"expires_in"`
			}
			if err := json.Unmarshal(body, &tokens); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}

			fmt.Println(tokens.AccessToken)
			fmt.Fprintf(os.Stderr, "Token expires in %ds\n", tokens.ExpiresIn)
			return nil
		},
	}
}
