package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vulnverified/valkyrie/internal/config"
	"github.com/vulnverified/valkyrie/internal/engine"
	"github.com/vulnverified/valkyrie/internal/input"
	"github.com/vulnverified/valkyrie/internal/output"
)

var errNoArgs = errors.New("no arg(s) provided")

// targets resolves the command input and keeps what extract finds in it.
func (a *app) targets(cmd *cobra.Command, args []string, interactive bool, extract func(string) []string) ([]string, error) {
	values, err := a.reader.Read(cmd.Name(), args, interactive)
	if err != nil {
		return nil, err
	}
	found := extract(strings.Join(values, "\n"))
	if len(found) == 0 {
		return nil, errNoArgs
	}
	a.logger.Debug("Parsed input", "values", len(values), "targets", len(found))
	return found, nil
}

func (a *app) openConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return config.Open(path, config.Defaults)
}

// renderFunc prints one finished item in text mode.
type renderFunc[T any] func(w io.Writer, item engine.Item[T])

// runTool checks every target and writes the results. Per-target failures
// are shown in the output and do not fail the command.
func runTool[T any](ctx context.Context, a *app, tool string, targets []string, check engine.CheckFunc[T], render renderFunc[T]) (err error) {
	if a.outputPath != "" {
		var restore func() error
		if restore, err = a.redirectOutput(a.outputPath); err != nil {
			return err
		}
		defer func() {
			if cerr := restore(); err == nil {
				err = cerr
			}
		}()
	}

	progress := output.NewProgress(a.logger)
	report := engine.Run(ctx, engine.Config{Tool: tool, Concurrency: a.concurrency}, targets, check, progress)
	progress.Complete()

	if a.jsonOutput {
		return output.WriteJSON(a.stdout, report)
	}

	for i, item := range report.Items {
		if i > 0 {
			fmt.Fprintln(a.stdout)
		}
		render(a.stdout, item)
	}
	if a.verbosity > 0 {
		output.WriteSummary(a.stderr, tool, report.Summary, a.noColor)
	}
	return nil
}

// redirectOutput sends a.stdout to a new file at path. The returned func
// flushes and closes the file, restores stdout and reports any write error.
func (a *app) redirectOutput(path string) (func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	stdout := a.stdout
	buf := bufio.NewWriter(f)
	a.stdout = buf

	return func() error {
		a.stdout = stdout
		flushErr := buf.Flush()
		closeErr := f.Close()
		if flushErr != nil {
			return fmt.Errorf("writing %s: %w", path, flushErr)
		}
		if closeErr != nil {
			return fmt.Errorf("closing %s: %w", path, closeErr)
		}
		a.logger.Info("Wrote results", "path", path)
		return nil
	}, nil
}

func (a *app) writeError(w io.Writer, target string, err error) {
	output.WriteMessage(w, target, "Error: "+err.Error(), a.noColor)
}

func addInteractiveFlag(cmd *cobra.Command, interactive *bool) {
	cmd.Flags().BoolVarP(interactive, "interactive", "I", false, "Read input interactively from stdin")
}

func joinExtract(extractors ...func(string, bool) []string) func(string) []string {
	return func(text string) []string {
		var out []string
		for _, extract := range extractors {
			out = append(out, extract(text, true)...)
		}
		return out
	}
}

func uniqueExtract(extract func(string, bool) []string) func(string) []string {
	return func(text string) []string {
		return extract(text, true)
	}
}

var (
	extractURLs        = uniqueExtract(input.ExtractURLs)
	extractIPs         = uniqueExtract(input.ExtractIPs)
	extractDomains     = uniqueExtract(input.ExtractDomains)
	extractIPsAndNames = joinExtract(input.ExtractIPs, input.ExtractDomains)
)
