package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handiism/soundcloud-downloader/internal/download"
	"github.com/handiism/soundcloud-downloader/internal/metrics"
	"github.com/handiism/soundcloud-downloader/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tagged MP3s to a browser extension over HTTP",
		Long: `serve listens for POST /download requests carrying a track URL and
answers with the tagged MP3. Prometheus metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default from settings)")
	a.bind(cmd, map[string]string{"server_addr": "addr"})
	return cmd
}

func (a *app) runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := a.context()
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	manager := download.NewManager(a.settings, a.logger, m, nil)
	srv := server.NewServer(a.settings.ServerAddr, manager, reg, a.logger.Named("server"))

	a.logger.Info("Starting scdl companion server",
		zap.String("addr", a.settings.ServerAddr),
		zap.Bool("static_client_id", a.settings.ClientID != ""))
	return srv.Start(ctx)
}
