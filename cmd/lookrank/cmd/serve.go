package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matheusschuckar/look-pro/engine"
	"github.com/matheusschuckar/look-pro/feedback"
	"github.com/matheusschuckar/look-pro/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	Long:  `启动排序 HTTP 服务。Ctrl+C 或 SIGTERM 时等待进行中的请求与事件队列处理完毕后退出。`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	backend := openBackend()
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		return err
	}

	opts, err := engineOptions(backend, metrics)
	if err != nil {
		return err
	}
	sessions := server.NewSessions(backend,
		server.WithEngineOptions(opts...),
		server.WithIdleTTL(cfg.Server.SessionIdleTTL),
		server.WithMaxSessions(cfg.Server.MaxSessions),
	)

	dopts := []feedback.Option{
		feedback.WithLogger(logger),
		feedback.WithQueueSize(cfg.Feedback.QueueSize),
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		sink, err := feedback.NewKafkaSink(cfg.Kafka, logger)
		if err != nil {
			return err
		}
		dopts = append(dopts, feedback.WithSink(sink))
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("feedback stream enabled")
	}
	dispatcher := feedback.NewDispatcher(sessions.Recorder, dopts...)

	srv := server.New(server.Config{
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Gatherer:   reg,
		Logger:     logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		_ = dispatcher.Close()
		return err
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
