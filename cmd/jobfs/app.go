package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/nuln/jobfs"
	"github.com/nuln/jobfs/config"
	_ "github.com/nuln/jobfs/drivers"
	"github.com/nuln/jobfs/metrics"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	endpoint   string
	user       string
	password   string
	logLevel   string

	cfg      *config.Config
	logger   *slog.Logger
	hub      *jobfs.Hub
	registry *prometheus.Registry
	in       io.Reader
}

// run wraps a subcommand so that it sees a connected hub and the hub is
// closed afterwards, whether the command failed or not.
func (a *app) run(fn func(ctx context.Context, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a.in = cmd.InOrStdin()
		if err := a.setup(cmd.ErrOrStderr()); err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, a.teardown()) }()
		return fn(cmd.Context(), cmd.OutOrStdout(), args)
	}
}

func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(a.logLevel)
	}
	a.cfg = cfg
	a.logger = config.NewLogger(cfg.Logging, logOut)

	opts := []jobfs.CacheOption{jobfs.WithLogger(a.logger)}
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		opts = append(opts, jobfs.WithMetrics(metrics.NewCacheMetrics(a.registry)))
	}
	a.hub = jobfs.NewHub(opts...)
	return nil
}

func (a *app) teardown() error {
	err := a.hub.Close()
	if a.registry != nil {
		err = multierr.Append(err, prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, a.registry))
	}
	return err
}

// credentials applies --user and --password on top of opts.
func (a *app) credentials(opts jobfs.Options) jobfs.Options {
	opts.Set(jobfs.OptUser, a.user)
	opts.Set(jobfs.OptPassword, a.password)
	return opts
}

// resolve connects the backend arg refers to and returns the path on it.
// With --endpoint, arg is a path relative to the endpoint's base path;
// otherwise it is a full address.
func (a *app) resolve(ctx context.Context, arg string) (jobfs.Backend, string, error) {
	if a.endpoint != "" {
		e, ok := a.cfg.Endpoint(a.endpoint)
		if !ok {
			return nil, "", fmt.Errorf("unknown endpoint %q", a.endpoint)
		}
		d := e.Descriptor()
		base := d.Path
		if addr, ok := d.Address(); ok {
			base = addr.Path
		}
		b, err := a.hub.Connect(ctx, d.Kind(), a.credentials(e.ConnectOptions()))
		if err != nil {
			return nil, "", err
		}
		return b, joinPath(base, arg), nil
	}

	addr, err := jobfs.ParseAddress(arg)
	if err != nil {
		return nil, "", err
	}
	b, err := a.hub.Connect(ctx, addr.Kind, a.credentials(jobfs.OptionsFromAddress(addr)))
	if err != nil {
		return nil, "", err
	}
	return b, addr.Path, nil
}

func joinPath(base, p string) string {
	if base == "" || path.IsAbs(p) {
		return p
	}
	return path.Join(base, p)
}
