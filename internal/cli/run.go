package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markand/irccd-sub002/internal/admin"
	"github.com/markand/irccd-sub002/internal/bot"
	"github.com/markand/irccd-sub002/internal/config"
	"github.com/markand/irccd-sub002/internal/loop"
	"github.com/markand/irccd-sub002/internal/plugin"
	"github.com/markand/irccd-sub002/internal/plugin/history"
	"github.com/markand/irccd-sub002/internal/plugin/logger"
	"github.com/markand/irccd-sub002/internal/transport"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config    string
	PIDFile   string
	Daemonize bool
}

// Catalog lists the plugins compiled into the daemon.
func Catalog() plugin.Catalog {
	return plugin.Catalog{
		"logger":  logger.New,
		"history": history.New,
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the daemon",
		Long: `Start irccd with the given configuration file.

Every configured server is connected, the configured plugins are loaded and
the administrative socket is opened when the transport section is set.

Example:
  irccd run -c /etc/irccd.yaml
  irccd run -c irccd.yaml --pidfile /run/irccd.pid --daemonize`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Daemonize && !isDaemonChild() {
				pid, err := daemonize()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "irccd started in background, pid %d\n", pid)
				return nil
			}
			return runDaemon(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "irccd.yaml", "path to configuration file")
	cmd.Flags().StringVar(&opts.PIDFile, "pidfile", "", "write the process id to this file")
	cmd.Flags().BoolVarP(&opts.Daemonize, "daemonize", "d", false, "detach from the terminal")

	return cmd
}

func runDaemon(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}

	out, err := logOutput(cfg.Logs, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer out.Close()

	logLevel := slog.LevelInfo
	if opts.Verbose || cfg.Logs.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(log)

	if opts.PIDFile != "" {
		if err := writePIDFile(opts.PIDFile); err != nil {
			log.Warn("could not write pid file", "path", opts.PIDFile, "error", err)
		} else {
			defer os.Remove(opts.PIDFile)
		}
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	l := loop.New()
	registry := plugin.NewRegistry(Catalog(), log)

	var (
		cmds *admin.Commands
		ts   *transport.Server
		pub  bot.Broadcaster
	)
	if t, ok := transportOptions(cfg.Transport); ok {
		ts, err = transport.Listen(t, func(ctx context.Context, req admin.Request) admin.Response {
			var res admin.Response
			if err := l.Call(ctx, func() { res = cmds.Exec(req) }); err != nil {
				return admin.Failure(req.Command(), &admin.Error{Code: admin.Unavailable, Message: "daemon is shutting down"})
			}
			return res
		}, log)
		if err != nil {
			return err
		}
		pub = ts
	}

	b := bot.New(l, cfg.Router(), registry, pub, log)
	cmds = admin.New(b, cfg.PluginOptions(), log)

	l.Post(func() {
		for _, sc := range cfg.Servers {
			sopts := sc.Options()
			if sopts.CTCPVersion == "" {
				sopts.CTCPVersion = "irccd " + opts.Build.Version
			}
			if _, err := b.AddServer(sopts, sc.Reconnect()); err != nil {
				log.Error("failed to add server", "server", sc.ID, "error", err)
			}
		}
		for _, pc := range cfg.Plugins {
			if err := registry.Load(pc.Name, pc.Options); err != nil {
				log.Error("failed to load plugin", "plugin", pc.Name, "error", err)
			}
		}
		b.Start()
	})

	served := make(chan struct{})
	if ts != nil {
		go func() {
			defer close(served)
			ts.Serve(ctx)
		}()
	} else {
		close(served)
	}

	log.Info("irccd started", "version", opts.Build.Version, "servers", len(cfg.Servers))
	if err := l.Run(ctx); err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return fmt.Errorf("loop failed: %w", err)
	}

	// The loop has returned so this goroutine owns the state again.
	cancel()
	<-served
	b.Close()
	registry.Close()
	l.Close()

	log.Info("irccd stopped")
	return nil
}

func transportOptions(t config.Transport) (transport.Options, bool) {
	switch {
	case t.Path != "":
		return transport.Options{Network: "unix", Address: t.Path, Password: t.Password}, true
	case t.Address != "":
		return transport.Options{Network: "tcp", Address: t.Address, Password: t.Password}, true
	}
	return transport.Options{}, false
}

// logOutput opens the configured log file, or wraps stderr.
func logOutput(logs config.Logs, stderr io.Writer) (io.WriteCloser, error) {
	if logs.Path == "" {
		return nopCloser{stderr}, nil
	}
	f, err := os.OpenFile(logs.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
