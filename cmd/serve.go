package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/docloom-insights/internal/server"
)

var (
	srvAddr        string
	srvMaxUploadMB int
	srvZThreshold  float64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /generate-insights/ over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *currentConfig()
		f := cmd.Flags()
		if f.Changed("addr") {
			c.ListenAddr = srvAddr
		}
		if f.Changed("max-upload-mb") {
			c.MaxUploadMB = srvMaxUploadMB
		}
		if f.Changed("z-threshold") {
			c.ZThreshold = srvZThreshold
		}
		if err := c.Validate(); err != nil {
			return err
		}
		opt, err := c.ParserOptions()
		if err != nil {
			return err
		}

		logger, err := newLogger(&c)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		svc, err := newService(&c, opt, logger)
		if err != nil {
			return err
		}
		srv := server.New(c.ListenAddr, svc,
			server.WithLogger(logger),
			server.WithAppName(c.ServiceName),
			server.WithBodyLimit(c.MaxUploadMB<<20),
			server.WithReadTimeout(time.Duration(c.ReadTimeoutSec)*time.Second),
			server.WithWriteTimeout(time.Duration(c.WriteTimeoutSec)*time.Second),
			server.WithCORSOrigins(c.CORSAllowOrigins...),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Start(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
		case err := <-srv.Err():
			if err != nil {
				return ewrap.Wrap(err, "serve")
			}
			return nil
		}

		logger.Info("shutting down", zap.Int("timeout_sec", c.ShutdownTimeoutSec))
		sctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.ShutdownTimeoutSec)*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config, :8000)")
	serveCmd.Flags().IntVar(&srvMaxUploadMB, "max-upload-mb", 0, "maximum upload size in MiB (default from config, 10)")
	serveCmd.Flags().Float64Var(&srvZThreshold, "z-threshold", 0, "anomaly |z| threshold (default from config, 3.0)")
}
