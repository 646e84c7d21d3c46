package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vulnverified/valkyrie/internal/dnslookup"
	"github.com/vulnverified/valkyrie/internal/engine"
	"github.com/vulnverified/valkyrie/internal/output"
)

func newDNSCheckCmd(a *app) *cobra.Command {
	var (
		interactive bool
		rtypes      []string
		nameservers []string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dnscheck [domain|ip|file|-]...",
		Short: "Look up DNS records for domains and IP addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := recordTypes(rtypes)
			if err != nil {
				return err
			}
			targets, err := a.targets(cmd, args, interactive, extractIPsAndNames)
			if err != nil {
				return err
			}

			resolver := dnslookup.New(timeout)
			if len(nameservers) > 0 {
				resolver.Nameservers = nameservers
			}

			check := func(ctx context.Context, target string) ([]dnslookup.Record, error) {
				return resolver.LookupAll(ctx, target, types)
			}
			render := func(w io.Writer, item engine.Item[[]dnslookup.Record]) {
				if len(item.Result) == 0 && item.Err() != nil {
					a.writeError(w, item.Target, item.Err())
					return
				}
				output.WriteRecords(w, item.Target, item.Result, a.noColor)
			}
			return runTool(cmd.Context(), a, "dnscheck", targets, check, render)
		},
	}

	addInteractiveFlag(cmd, &interactive)
	cmd.Flags().StringSliceVarP(&rtypes, "rtypes", "t", dnslookup.DefaultRecordTypes, "Record types to query")
	cmd.Flags().StringSliceVarP(&nameservers, "nameservers", "n", nil, "Nameservers to query (default: public resolvers)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Per-query timeout")
	return cmd
}

// recordTypes upper-cases and validates the requested types.
func recordTypes(raw []string) ([]string, error) {
	types := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !dnslookup.IsValidRecordType(t) {
			return nil, fmt.Errorf("%w: %s", dnslookup.ErrInvalidRecordType, t)
		}
		types = append(types, t)
	}
	return types, nil
}
