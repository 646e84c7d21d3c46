package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vulnverified/valkyrie/internal/engine"
	"github.com/vulnverified/valkyrie/internal/output"
	"github.com/vulnverified/valkyrie/internal/redirect"
)

func newURLCheckCmd(a *app) *cobra.Command {
	var (
		interactive bool
		noTruncate  bool
		showHeaders bool
		noMeta      bool
		timeout     time.Duration
		maxHops     int
		headers     []string
		proxy       string
		method      string
	)

	cmd := &cobra.Command{
		Use:   "urlcheck [url|file|-]...",
		Short: "Follow the redirect chain of each URL",
		Long: "Follow the redirect chain of each URL one request at a time, showing the status " +
			"and headers of every hop. Location headers and meta refresh tags are followed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			targets, err := a.targets(cmd, args, interactive, extractURLs)
			if err != nil {
				return err
			}

			var proxies map[string]string
			if proxy != "" {
				proxies = map[string]string{"http": proxy, "https": proxy}
			}
			resolver := &redirect.Resolver{
				Client: redirect.NewClient(redirect.ClientConfig{Proxies: proxies, Timeout: timeout}),
			}
			base := redirect.Request{
				Method:            strings.ToUpper(method),
				Timeout:           timeout,
				Headers:           extra,
				Proxies:           proxies,
				FollowMetaRefresh: !noMeta,
				MaxHops:           maxHops,
			}

			check := func(ctx context.Context, target string) (redirect.Chain, error) {
				req := base
				req.URL = target
				chain := resolver.Resolve(ctx, req)
				if chain.Failed() {
					return chain, chain.Final().Err
				}
				return chain, nil
			}

			opts := output.ChainOptions{
				NoTruncate:     noTruncate,
				ShowAllHeaders: showHeaders,
				NoColor:        a.noColor,
			}
			render := func(w io.Writer, item engine.Item[redirect.Chain]) {
				if len(item.Result) == 0 {
					a.writeError(w, item.Target, item.Err())
					return
				}
				output.WriteChain(w, item.Result, opts)
			}
			return runTool(cmd.Context(), a, "urlcheck", targets, check, render)
		},
	}

	addInteractiveFlag(cmd, &interactive)
	cmd.Flags().BoolVarP(&noTruncate, "no-truncate", "t", false, "Show full header values")
	cmd.Flags().BoolVarP(&showHeaders, "show-headers", "s", false, "Show every response header")
	cmd.Flags().BoolVar(&noMeta, "no-meta", false, "Do not follow meta refresh tags")
	cmd.Flags().DurationVar(&timeout, "timeout", redirect.DefaultTimeout, "Per-request timeout")
	cmd.Flags().IntVar(&maxHops, "max-hops", 20, "Maximum requests per chain (0 for no limit)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra request header as 'Key: Value' (repeatable)")
	cmd.Flags().StringVar(&proxy, "proxy", "", "Proxy URL for http and https requests")
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	return cmd
}

// parseHeaders turns "Key: Value" strings into a header set.
func parseHeaders(raw []string) (http.Header, error) {
	h := make(http.Header)
	for _, line := range raw {
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --header %q: want 'Key: Value'", line)
		}
		h.Add(key, strings.TrimSpace(value))
	}
	return h, nil
}
