package cli

import (
	"fmt"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration oltstat would run with, as YAML: defaults, then
the config file, then OLT_* environment variables, then flags.`,
		Example: `  oltstat config
  OLT_CACHE_TTL=120 oltstat config --transport sshpass`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := opts.load(cmd)
			if err != nil {
				return fail(cmd.ErrOrStderr(), err, ExitUsage)
			}

			out := cmd.OutOrStdout()
			if path != "" {
				fmt.Fprintf(out, "# %s\n", path)
			} else {
				fmt.Fprintln(out, "# no config file; defaults and environment")
			}

			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fail(cmd.ErrOrStderr(),
					errors.WrapWithCode(err, errors.ErrConfig, "Cannot render config", ""), ExitFailure)
			}
			return enc.Close()
		},
	}
}
