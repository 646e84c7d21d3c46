package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vulnverified/valkyrie/internal/config"
	"github.com/vulnverified/valkyrie/internal/engine"
	"github.com/vulnverified/valkyrie/internal/ipaddr"
	"github.com/vulnverified/valkyrie/internal/output"
)

type ipResult struct {
	Private   bool         `json:"private,omitempty"`
	Info      *ipaddr.Info `json:"info,omitempty"`
	Providers []string     `json:"providers,omitempty"`
}

func newIPCheckCmd(a *app) *cobra.Command {
	var (
		interactive bool
		providers   bool
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ipcheck [ip|file|-]...",
		Short: "Look up location and ownership of IP addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.targets(cmd, args, interactive, extractIPs)
			if err != nil {
				return err
			}

			var token string
			if cfg, err := a.openConfig(); err != nil {
				a.logger.Warn("Config unavailable, querying without a token", "err", err)
			} else {
				token = cfg.Lookup(config.KeyIPInfoToken)
			}

			httpClient := &http.Client{Timeout: timeout}
			info := ipaddr.NewInfoClient(httpClient, token)
			ranges := ipaddr.NewRanges(httpClient)

			check := func(ctx context.Context, ip string) (ipResult, error) {
				if ipaddr.IsPrivate(ip) {
					return ipResult{Private: true}, nil
				}
				res, err := info.Lookup(ctx, ip)
				if err != nil {
					return ipResult{}, err
				}
				result := ipResult{Info: res}
				if providers {
					matched, err := ranges.Providers(ctx, ip)
					if err != nil {
						a.logger.Warn("Some provider lists failed to load", "ip", ip, "err", err)
					}
					result.Providers = matched
				}
				return result, nil
			}
			render := func(w io.Writer, item engine.Item[ipResult]) {
				switch {
				case item.Err() != nil:
					a.writeError(w, item.Target, item.Err())
				case item.Result.Private:
					output.WriteMessage(w, item.Target, "Skipped, private ip address.", a.noColor)
				default:
					output.WriteFields(w, item.Target, ipFields(item.Result, providers), a.noColor)
				}
			}
			return runTool(cmd.Context(), a, "ipcheck", targets, check, render)
		},
	}

	addInteractiveFlag(cmd, &interactive)
	cmd.Flags().BoolVar(&providers, "providers", false, "Check Tor, AWS, Cloudflare and Fastly ranges")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
	return cmd
}

func ipFields(r ipResult, withProviders bool) []output.Field {
	var fields []output.Field
	if r.Info != nil {
		for _, f := range r.Info.Fields() {
			fields = append(fields, output.Field{Key: f.Key, Value: f.Value})
		}
	}
	if withProviders {
		value := "none"
		if len(r.Providers) > 0 {
			value = strings.Join(r.Providers, ", ")
		}
		fields = append(fields, output.Field{Key: "providers", Value: value})
	}
	return fields
}
