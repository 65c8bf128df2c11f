package cli

import (
	"github.com/rileyhilliard/oltstat/internal/cache"
	"github.com/rileyhilliard/oltstat/internal/collector"
	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/rileyhilliard/oltstat/internal/metrics"
	"github.com/rileyhilliard/oltstat/internal/output"
	"github.com/rileyhilliard/oltstat/internal/pathquery"
	"github.com/rileyhilliard/oltstat/internal/secret"
	"github.com/rileyhilliard/oltstat/internal/transport"
	"github.com/spf13/cobra"
)

// runGet reads the device (or its snapshot) and prints the selection.
func runGet(cmd *cobra.Command, opts *rootOptions, host, password string, paths []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, cfgPath, err := opts.load(cmd)
	if err != nil {
		return fail(stderr, err, ExitUsage)
	}

	log := logger.NewWriter(stderr, "", cfg.Debug)
	if cfgPath != "" {
		log.Debug("config: %s", cfgPath)
	}
	policy := cfg.Policy(host)

	if opts.catCache {
		data, err := cache.Cat(policy.Path)
		if err != nil {
			return fail(stderr, err, ExitUsage)
		}
		_, err = stdout.Write(data)
		return err
	}

	cred := secret.NewCredential(password)
	log.Debug("olt: host=%s user=%s password=%s transport=%s", host, cfg.Transport.User, cred.Redacted(), cfg.Transport.Kind)
	log.Debug("cache: file=%s ttl=%s enabled=%t", policy.Path, policy.TTL, policy.Enabled)

	runner, err := transport.NewRunner(cfg.TransportOptions(), log)
	if err != nil {
		return fail(stderr, err, ExitUsage)
	}

	rec := metrics.New(cfg.Metrics.Dir, log)
	coll := collector.New(transport.New(runner, log), cache.New(log), rec, log)
	coll.LockTimeout = cfg.Lock.Timeout

	doc, err := coll.GetAll(cmd.Context(), transport.Request{Host: host, Credential: cred}, policy)
	if ferr := rec.Flush(host); ferr != nil {
		log.Warn("metrics: %s", errors.OneLine(ferr))
	}
	if err != nil {
		return fail(stderr, err, ExitFailure)
	}

	selection, err := pathquery.NewProjector(log).Project(doc, paths)
	if err != nil {
		return fail(stderr, err, ExitFailure)
	}

	if len(paths) > 1 {
		values, _ := selection.(map[string]any)
		err = output.Paths(stdout, paths, values)
	} else {
		err = output.Value(stdout, selection)
	}
	if err != nil {
		return fail(stderr, err, ExitFailure)
	}
	return nil
}
