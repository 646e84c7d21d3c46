package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vulnverified/valkyrie/internal/engine"
	"github.com/vulnverified/valkyrie/internal/ipaddr"
	"github.com/vulnverified/valkyrie/internal/output"
	"github.com/vulnverified/valkyrie/internal/whois"
)

// whoisResult holds the record for whichever kind of target was queried.
type whoisResult struct {
	Domain *whois.DomainRecord `json:"domain,omitempty"`
	IP     *whois.IPRecord     `json:"ip,omitempty"`
}

func newWhobeCmd(a *app) *cobra.Command {
	var (
		interactive bool
		timeout     time.Duration
		retries     int
	)

	cmd := &cobra.Command{
		Use:   "whobe [domain|ip|file|-]...",
		Short: "Look up WHOIS registration data",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.targets(cmd, args, interactive, extractIPsAndNames)
			if err != nil {
				return err
			}

			client := whois.New(timeout)
			client.MaxRetries = retries

			check := func(ctx context.Context, target string) (whoisResult, error) {
				if ipaddr.IsValid(target) {
					rec, err := client.IP(ctx, target)
					return whoisResult{IP: rec}, err
				}
				rec, err := client.Domain(ctx, target)
				return whoisResult{Domain: rec}, err
			}
			render := func(w io.Writer, item engine.Item[whoisResult]) {
				switch {
				case errors.Is(item.Err(), whois.ErrNoData):
					output.WriteMessage(w, item.Target, "No whois data found.", a.noColor)
				case item.Err() != nil:
					a.writeError(w, item.Target, item.Err())
				case item.Result.IP != nil:
					output.WriteIPWhois(w, item.Target, item.Result.IP, a.noColor)
				case item.Result.Domain != nil:
					output.WriteDomainWhois(w, item.Target, item.Result.Domain, a.noColor)
				}
			}
			return runTool(cmd.Context(), a, "whobe", targets, check, render)
		},
	}

	addInteractiveFlag(cmd, &interactive)
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Per-query timeout")
	cmd.Flags().IntVar(&retries, "retries", whois.DefaultMaxRetries, "Attempts per domain")
	return cmd
}
