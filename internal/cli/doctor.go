package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/oltstat/internal/config"
	"github.com/rileyhilliard/oltstat/internal/doctor"
	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/rileyhilliard/oltstat/internal/secret"
	"github.com/rileyhilliard/oltstat/internal/transport"
	"github.com/rileyhilliard/oltstat/internal/ui"
	"github.com/spf13/cobra"
)

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor [host password]",
		Short: "Check the installation as the polling user",
		Long: `Run diagnostic checks: config, cache and lock directory permissions,
transport availability and the metrics directory. Given a host and
password, also open one SSH session and decode the device's document,
bypassing the cache.

Run it as the user the monitoring agent polls as, e.g.
  sudo -u zabbix oltstat doctor 192.168.50.10 password`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("doctor takes no arguments, or a host and a password")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, _, err := opts.load(cmd)
			if err != nil {
				// The config check below reports the details.
				cfg = config.DefaultConfig()
			}

			host := "localhost"
			if len(args) == 2 {
				host = args[0]
			}

			checks := []doctor.Check{
				&doctor.ConfigCheck{ConfigPath: opts.configPath},
				&doctor.CacheDirCheck{Policy: cfg.Policy(host), Preferred: cfg.Cache.Dir},
				&doctor.TransportCheck{Options: cfg.TransportOptions()},
				&doctor.MetricsDirCheck{Dir: cfg.Metrics.Dir},
			}

			if len(args) == 2 {
				log := logger.NewWriter(cmd.ErrOrStderr(), "", cfg.Debug)
				runner, err := transport.NewRunner(cfg.TransportOptions(), log)
				if err == nil {
					checks = append(checks, &doctor.DeviceCheck{
						Host:       host,
						Credential: secret.NewCredential(args[1]),
						Fetcher:    transport.New(runner, log),
					})
				}
			}

			report := doctor.Run(cmd.Context(), checks)
			if fix {
				for _, err := range report.Fix(cmd.Context()) {
					fmt.Fprintf(out, "could not %v\n", err)
				}
			}

			printReport(out, report)

			if report.Failed() {
				return errors.NewExitError(ExitFailure)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Create missing directories")
	return cmd
}

func printReport(w io.Writer, report *doctor.Report) {
	styles := ui.NewStyles(w)

	for _, category := range report.Categories() {
		fmt.Fprintln(w, category)
		for i, check := range report.Checks {
			if check.Category() != category {
				continue
			}
			r := report.Results[i]
			fmt.Fprintf(w, "  %s %s\n", styles.Symbol(r.Status.String()), r.Message)
			if r.Suggestion != "" && r.Status != doctor.StatusPass {
				fmt.Fprintf(w, "    %s\n", styles.Hint(r.Suggestion))
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", report.Summary())
}
