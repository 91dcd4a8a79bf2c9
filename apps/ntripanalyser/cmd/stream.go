package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/goblimey/go-ntrip-analyser/capture"
	"github.com/goblimey/go-ntrip-analyser/caster"
	"github.com/goblimey/go-ntrip-analyser/config"
	"github.com/goblimey/go-ntrip-analyser/logging"
	"github.com/goblimey/go-ntrip-analyser/reconnect"
	"github.com/goblimey/go-ntrip-analyser/reportfeed"
	"github.com/goblimey/go-ntrip-analyser/rtcm/handler"
	"github.com/goblimey/go-ntrip-analyser/store"
	"github.com/goblimey/go-ntrip-analyser/stream"
)

// shutdownTimeout limits the time spent stopping the status server.
const shutdownTimeout = 5 * time.Second

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Connect to a caster and analyse the stream from a mountpoint",
		Long: `Stream connects to the caster, requests the mountpoint and displays the
RTCM3 messages as they arrive.  If the connection fails or the stream
ends, it reconnects with exponential backoff until the attempts run out.

A report of the message counts and recent events is logged at intervals
and, if report.address is set, served as a web page.  If no host is
given, the connection used last time is taken from the store.

Interrupt the command to stop it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			types, err := cmd.Flags().GetIntSlice("types")
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyConnectionFlags(cmd, &cfg.Connection); err != nil {
				return err
			}
			p, err := newPrinter(cmd.OutOrStdout(), format, types)
			if err != nil {
				return err
			}
			defer p.close()
			return runStream(cmd.Context(), cfg, p, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	addConnectionFlags(cmd)
	cmd.Flags().StringP("format", "f", formatSummary,
		"message output format: summary, text, json, yaml, raw or none")
	cmd.Flags().IntSlice("types", nil, "only show these message types, eg 1005,1077")
	return cmd
}

// runStream runs the analyser until the context is cancelled or the
// reconnection attempts run out.  The decoded messages go to the printer
// and the log to logOut.  A final report is written to out at the end.
func runStream(ctx context.Context, cfg *config.Config, p *printer, out, logOut io.Writer) error {
	logs, err := logging.NewWithWriter(cfg.Log, logOut)
	if err != nil {
		return err
	}
	defer logs.Close()
	logger := logs.Logger("ntripanalyser")

	conn, err := resolveConnection(ctx, cfg, logger)
	if err != nil {
		return err
	}

	policy, err := reconnect.New(cfg.Reconnect.MaxAttempts, cfg.Reconnect.BaseDelay, cfg.Reconnect.MaxDelay)
	if err != nil {
		return err
	}

	settings := stream.Settings{
		Dialer:         caster.New(logs.Logger("caster"), caster.WithDialTimeout(cfg.DialTimeout)),
		Handler:        handler.New(logs.Logger("handler")),
		Policy:         policy,
		Logger:         logs.Logger("stream"),
		MessageHistory: cfg.History.Messages,
		EventHistory:   cfg.History.Events,
	}

	if cfg.Capture.Enabled {
		writer, err := capture.New(cfg.Capture.Directory, logs.Logger("capture"))
		if err != nil {
			return err
		}
		defer writer.Close()
		settings.Capture = writer
	}

	orchestrator, err := stream.New(settings)
	if err != nil {
		return err
	}
	defer orchestrator.Close()

	messages := orchestrator.Subscribe()
	defer messages.Close()

	feed := reportfeed.New(orchestrator, nil)

	if cfg.Report.Interval > 0 {
		job := cron.New()
		spec := "@every " + cfg.Report.Interval.String()
		err := job.AddFunc(spec, func() { logger.Info("report\n" + feed.Text()) })
		if err != nil {
			return fmt.Errorf("scheduling the report: %w", err)
		}
		job.Start()
		defer job.Stop()
	}

	if cfg.Report.Address != "" {
		server := reportfeed.NewServer(cfg.Report.Address, feed)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server", "address", cfg.Report.Address, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	if err := orchestrator.Start(conn); err != nil {
		return err
	}

	err = watch(ctx, orchestrator, messages, p, logger)

	fmt.Fprint(out, "\n"+feed.Text())

	return err
}

// resolveConnection returns the connection to use.  If the config has no
// host, the connection is taken from the store.  The connection used is
// saved for next time.
func resolveConnection(ctx context.Context, cfg *config.Config, logger *slog.Logger) (config.Connection, error) {
	conn := cfg.Connection

	if cfg.Store.Path == "" {
		return conn, conn.Validate()
	}

	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return conn, err
	}
	defer st.Close()

	if conn.Host == "" {
		stored, found, err := st.Load(ctx)
		if err != nil {
			return conn, err
		}
		if found {
			logger.Info("using the stored connection", "connection", stored.String())
			conn = stored
		}
	}

	if err := conn.Validate(); err != nil {
		return conn, err
	}

	if err := st.Save(ctx, conn); err != nil {
		logger.Warn("saving the connection", "error", err)
	}

	return conn, nil
}

// watch prints the messages as they arrive.  It returns nil when the
// context is cancelled and an error if the stream is lost for good.
func watch(ctx context.Context, o *stream.Orchestrator, messages *stream.Subscription[handler.Message], p *printer, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			o.Stop()
			return nil

		case message, ok := <-messages.C:
			if !ok {
				return nil
			}
			if err := p.print(&message); err != nil {
				logger.Error("printing", "error", err)
			}

		case stats := <-o.StatsUpdates():
			if stats.State == stream.Disconnected {
				return errors.New(stats.StatusMessage)
			}
		}
	}
}
