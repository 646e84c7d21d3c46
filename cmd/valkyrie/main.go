package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/vulnverified/valkyrie/internal/config"
	"github.com/vulnverified/valkyrie/internal/input"
	"github.com/vulnverified/valkyrie/internal/output"
)

// Set via ldflags at build time.
var version = "dev"

// app holds the state shared by every subcommand.
type app struct {
	jsonOutput  bool
	noColor     bool
	verbosity   int
	concurrency int
	configPath  string
	outputPath  string

	stdout io.Writer
	stderr io.Writer
	reader *input.Reader
	logger *log.Logger
}

func main() {
	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		reader: input.NewReader(),
	}
	// The banner and prompt must not mix with results on stdout.
	a.reader.Out = os.Stderr

	// Set up context with signal handling for clean Ctrl+C.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	rootCmd := newRootCmd(a)
	if cmd, err := rootCmd.ExecuteContextC(ctx); err != nil {
		reportError(os.Stderr, cmd, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "valkyrie",
		Short: "Triage suspicious URLs, domains and IP addresses",
		Long: "Triage suspicious URLs, domains and IP addresses: follow redirect chains, " +
			"query DNS and WHOIS, look up IP ownership and check VirusTotal verdicts.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Respect NO_COLOR env var.
			if _, ok := os.LookupEnv("NO_COLOR"); ok {
				a.noColor = true
			}
			// Files get plain text.
			if a.outputPath != "" {
				a.noColor = true
			}
			a.logger = output.NewLogger(a.stderr, a.verbosity, a.noColor)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&a.jsonOutput, "json", false, "Output structured JSON to stdout")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable terminal colors")
	flags.CountVarP(&a.verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	flags.IntVar(&a.concurrency, "concurrency", 4, "Max targets checked in parallel")
	flags.StringVarP(&a.outputPath, "output", "o", "", "Write check results to a file instead of stdout")
	flags.StringVar(&a.configPath, "config", "", "Config file path (overrides $"+config.EnvPath+")")
	flags.BoolP("version", "V", false, "Print version and exit")

	rootCmd.AddCommand(
		newURLCheckCmd(a),
		newDNSCheckCmd(a),
		newWhobeCmd(a),
		newIPCheckCmd(a),
		newVirusTotalCmd(a),
		newConfigCmd(a),
	)

	setVersion(rootCmd)
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)
	return rootCmd
}

// setVersion makes -V/--version work on every subcommand.
func setVersion(cmd *cobra.Command) {
	cmd.Version = version
	for _, sub := range cmd.Commands() {
		setVersion(sub)
	}
}

func reportError(w io.Writer, cmd *cobra.Command, err error) {
	if errors.Is(err, errNoArgs) {
		path := "valkyrie"
		if cmd != nil {
			path = cmd.CommandPath()
		}
		fmt.Fprintln(w, "Error: No arg(s) provided")
		fmt.Fprintf(w, "Try '%s --help' or '%s -h' for more information\n", path, path)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
