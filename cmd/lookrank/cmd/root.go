// Package cmd 实现 lookrank 的子命令。
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/matheusschuckar/look-pro/config/builders"

	"github.com/matheusschuckar/look-pro/config"
	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/engine"
	"github.com/matheusschuckar/look-pro/server"
	"github.com/matheusschuckar/look-pro/settings"
	"github.com/matheusschuckar/look-pro/store"
)

var (
	cfgFile string
	envFile string
	verbose bool

	cfg    *settings.Settings
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lookrank",
	Short: "Look feed affinity ranking",
	Long: `lookrank 按用户的衰减偏好对商品 feed 排序。

Commands:
    serve    启动 HTTP 服务
    rank     对 JSON 候选列表排序
    bump     手动累加某个维度的偏好
    prefs    打印用户偏好文档
    decay    按指定半衰期衰减全部偏好
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute 执行根命令。
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before LOOKRANK_* variables are read")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, rankCmd, bumpCmd, prefsCmd, decayCmd)
}

func initConfig() error {
	if err := godotenv.Load(envFile); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "warning: %s not loaded, using environment only\n", envFile)
	}
	s, err := settings.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		s.Log.Level = "debug"
	}
	cfg = s
	logger = newLogger(s.Log)
	return nil
}

func newLogger(l settings.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var base zerolog.Logger
	if l.Format == "json" {
		base = zerolog.New(os.Stderr)
	} else {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return base.Level(level).With().Timestamp().Str("app", "lookrank").Logger()
}

// openBackend 打开配置的存储；打开失败时退化为不可用存储，排序仍然可用。
func openBackend() core.Store {
	backend, err := store.Open(cfg.Store)
	if err != nil {
		logger.Warn().Err(err).Str("backend", cfg.Store.Backend).Msg("store unavailable, preferences will not persist")
		return store.Unavailable{}
	}
	return backend
}

// engineOptions 组装所有会话共享的引擎选项。
func engineOptions(backend core.Store, metrics *engine.Metrics) ([]engine.Option, error) {
	opts := []engine.Option{
		engine.WithPolicy(cfg.Policy),
		engine.WithLogger(logger),
	}
	if metrics != nil {
		opts = append(opts, engine.WithMetrics(metrics))
	}
	if cfg.Pipeline != "" {
		p, err := config.LoadFile(cfg.Pipeline, map[string]any{config.ResourceStore: backend})
		if err != nil {
			return nil, fmt.Errorf("load pipeline %s: %w", cfg.Pipeline, err)
		}
		logger.Info().Str("pipeline", cfg.Pipeline).Int("nodes", len(p.Nodes)).Msg("pipeline loaded")
		opts = append(opts, engine.WithPipeline(p))
	}
	return opts, nil
}

// userEngine 为命令行子命令打开单个用户的引擎。
func userEngine(user string) (*engine.Engine, func(), error) {
	backend := openBackend()
	opts, err := engineOptions(backend, nil)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	e, err := server.NewSessions(backend, server.WithEngineOptions(opts...)).Engine(rootCmd.Context(), user)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return e, func() { _ = backend.Close() }, nil
}
