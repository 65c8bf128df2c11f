package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rileyhilliard/oltstat/internal/config"
	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/ui"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// rootOptions holds the flag values of one command tree.
type rootOptions struct {
	configPath string
	cacheFile  string
	cacheTTL   int
	noCache    bool
	catCache   bool
	debug      bool
	transport  string
	metricsDir string
}

// NewRootCmd builds the oltstat command tree. Every call returns a fresh
// tree with its own flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "oltstat <host> <password> [path ...]",
		Short: "Read Cambium OLT statistics for a monitoring agent",
		Long: `Fetch the full status document of a Cambium fiber OLT over SSH, cache it,
and print the values selected by the given paths.

With no path the whole document is printed. With one path its value is
printed: scalars as plain text, objects and arrays as indented JSON. With
several paths an object keyed by path is printed, in argument order.

Concurrent invocations for the same OLT share one SSH session: the first
fetches while the rest wait for the snapshot it writes.`,
		Example: `  oltstat 192.168.50.10 password
  oltstat 192.168.50.10 password 'Ethernet'
  oltstat 192.168.50.10 password 'Ethernet[0].Status' 'Ethernet[0].Speed'
  oltstat 192.168.50.10 password --no-cache 'Ethernet[0].RxMulticastPackets'
  oltstat 192.168.50.10 password --debug 'Ethernet[0].TxBytes'
  oltstat 192.168.50.10 password 'System.PowerStatus."Left slot".Power'
  oltstat 192.168.50.10 password 'ONU[?SerialNumber=CMBM12345678].Status'`,
		Args:          cobra.MinimumNArgs(2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, opts, args[0], args[1], args[2:])
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (default ~/.config/oltstat/config.yaml, then /etc/oltstat/config.yaml)")
	pf.StringVar(&opts.cacheFile, "cache-file", "", "Snapshot path; ${HOST} expands to the sanitized host")
	pf.IntVar(&opts.cacheTTL, "cache-ttl", 60, "Seconds a snapshot stays fresh")
	pf.BoolVar(&opts.noCache, "no-cache", false, "Disable cache read/write")
	pf.BoolVar(&opts.debug, "debug", false, "Print debug info to stderr")
	pf.StringVar(&opts.transport, "transport", "", "Session runner: native or sshpass")
	pf.StringVar(&opts.metricsDir, "metrics-dir", "", "Write node_exporter textfile metrics to this directory")
	cmd.Flags().BoolVar(&opts.catCache, "cat-cache", false, "Print the cached snapshot as-is and exit")

	cmd.AddCommand(newVersionCmd(), newConfigCmd(opts), newDoctorCmd(opts))
	return cmd
}

// load resolves the effective config: file and environment, then flags.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("cache-ttl") {
		cfg.Cache.TTL = time.Duration(o.cacheTTL) * time.Second
	}
	if o.noCache {
		cfg.Cache.Enabled = false
	}
	if o.cacheFile != "" {
		cfg.Cache.File = o.cacheFile
	}
	if o.debug {
		cfg.Debug = true
	}
	if o.transport != "" {
		cfg.Transport.Kind = o.transport
	}
	if o.metricsDir != "" {
		dir, err := filepath.Abs(config.ExpandTilde(o.metricsDir))
		if err != nil {
			return nil, "", errors.WrapWithCode(err, errors.ErrConfig,
				"Invalid --metrics-dir "+o.metricsDir, "Pass an absolute directory")
		}
		cfg.Metrics.Dir = dir
	}

	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Execute runs oltstat with the process arguments and returns the exit code.
func Execute(ctx context.Context) int {
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes one command line against the given streams and returns the
// exit code. Errors from the command itself have already been reported;
// anything else cobra returns is a usage error.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	if code, ok := errors.GetExitCode(err); ok {
		return code
	}

	styles := ui.NewStyles(stderr)
	fmt.Fprintf(stderr, "%s %s\n", styles.ErrorMarker(), errors.OneLine(err))
	fmt.Fprintln(stderr, styles.Hint("Run 'oltstat --help' for usage."))
	return ExitUsage
}

// fail reports err on w as one line and returns an ExitError carrying code.
func fail(w io.Writer, err error, code int) error {
	fmt.Fprintf(w, "%s %s\n", ui.NewStyles(w).ErrorMarker(), errors.OneLine(err))
	return errors.NewExitError(code)
}
