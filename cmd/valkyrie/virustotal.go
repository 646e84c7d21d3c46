package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vulnverified/valkyrie/internal/config"
	"github.com/vulnverified/valkyrie/internal/engine"
	"github.com/vulnverified/valkyrie/internal/output"
	"github.com/vulnverified/valkyrie/internal/virustotal"
)

type vtOptions struct {
	full    bool
	timeout time.Duration
}

// vtLookup fetches the report for one target.
type vtLookup func(ctx context.Context, client *virustotal.Client, target string) (*virustotal.Report, error)

func newVirusTotalCmd(a *app) *cobra.Command {
	opts := &vtOptions{}

	cmd := &cobra.Command{
		Use:   "vt",
		Short: "Query VirusTotal for URLs, files, domains and IP addresses",
		Long: "Query VirusTotal for URLs, files, domains and IP addresses. The API key is read " +
			"from the '" + config.KeyVirusTotalAPIKey + "' config setting.",
	}
	cmd.PersistentFlags().BoolVar(&opts.full, "full", false, "Show the full analysis report")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Per-request timeout")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Submit objects for a fresh analysis",
	}
	scanCmd.AddCommand(newVTSubCmd(a, opts, "url", "Submit URLs and wait for the analysis", extractURLs, scanURL))

	cmd.AddCommand(
		newVTSubCmd(a, opts, "url", "Show the latest report for URLs", extractURLs,
			func(ctx context.Context, c *virustotal.Client, u string) (*virustotal.Report, error) {
				return c.URLReport(ctx, u)
			}),
		newVTFileCmd(a, opts),
		newVTSubCmd(a, opts, "domain", "Show the report for domains", extractDomains,
			func(ctx context.Context, c *virustotal.Client, d string) (*virustotal.Report, error) {
				return c.DomainReport(ctx, d)
			}),
		newVTSubCmd(a, opts, "ip", "Show the report for IP addresses", extractIPs,
			func(ctx context.Context, c *virustotal.Client, ip string) (*virustotal.Report, error) {
				return c.IPReport(ctx, ip)
			}),
		scanCmd,
	)
	return cmd
}

func newVTSubCmd(a *app, opts *vtOptions, name, short string, extract func(string) []string, lookup vtLookup) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   name + " [value|file|-]...",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.targets(cmd, args, interactive, extract)
			if err != nil {
				return err
			}
			return a.runVT(cmd, opts, targets, lookup)
		},
	}
	addInteractiveFlag(cmd, &interactive)
	return cmd
}

func newVTFileCmd(a *app, opts *vtOptions) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "file [hash|path|-]...",
		Short: "Show the report for files by hash or path",
		Long: "Show the report for files. Arguments naming an existing file are hashed with " +
			"SHA-256; anything else is searched for MD5, SHA1, SHA256 and SHA512 digests.",
		RunE: func(cmd *cobra.Command, args []string) error {
			args, err := hashFileArgs(args)
			if err != nil {
				return err
			}
			targets, err := a.targets(cmd, args, interactive, extractHashes)
			if err != nil {
				return err
			}
			return a.runVT(cmd, opts, targets, func(ctx context.Context, c *virustotal.Client, hash string) (*virustotal.Report, error) {
				return c.FileReport(ctx, hash)
			})
		},
	}
	addInteractiveFlag(cmd, &interactive)
	return cmd
}

func (a *app) runVT(cmd *cobra.Command, opts *vtOptions, targets []string, lookup vtLookup) error {
	client, err := a.vtClient(opts.timeout)
	if err != nil {
		return err
	}

	check := func(ctx context.Context, target string) (*virustotal.Report, error) {
		return lookup(ctx, client, target)
	}
	render := func(w io.Writer, item engine.Item[*virustotal.Report]) {
		switch {
		case item.Err() != nil:
			a.writeError(w, item.Target, item.Err())
		case opts.full:
			output.WriteVTReport(w, item.Target, item.Result, a.noColor)
		default:
			output.WriteVTSummary(w, item.Target, item.Result, a.noColor)
		}
	}
	return runTool(cmd.Context(), a, strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" "), targets, check, render)
}

func (a *app) vtClient(timeout time.Duration) (*virustotal.Client, error) {
	cfg, err := a.openConfig()
	if err != nil {
		return nil, err
	}
	key := cfg.Lookup(config.KeyVirusTotalAPIKey)
	if key == "" {
		return nil, fmt.Errorf("%w: run 'valkyrie config set %s <key>'", virustotal.ErrNoAPIKey, config.KeyVirusTotalAPIKey)
	}
	return virustotal.New(key, &http.Client{Timeout: timeout}), nil
}

// scanURL submits u, waits for the analysis and returns the refreshed
// report.
func scanURL(ctx context.Context, c *virustotal.Client, u string) (*virustotal.Report, error) {
	id, err := c.ScanURL(ctx, u)
	if err != nil {
		return nil, err
	}
	if _, err := c.WaitForAnalysis(ctx, id); err != nil {
		return nil, fmt.Errorf("waiting for analysis %s: %w", id, err)
	}
	return c.URLReport(ctx, u)
}

// hashFileArgs replaces arguments naming regular files with their SHA-256.
func hashFileArgs(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.Mode().IsRegular() {
			out = append(out, arg)
			continue
		}
		sum, err := sha256File(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func extractHashes(text string) []string {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	for _, field := range strings.Fields(text) {
		field = strings.ToLower(strings.Trim(field, `"',;()[]`))
		if virustotal.HashType(field) == "" || seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, field)
	}
	return out
}
