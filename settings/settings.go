// Package settings 加载 lookrank 的运行配置：默认值 < YAML 文件 < LOOKRANK_* 环境变量。
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/matheusschuckar/look-pro/engine"
	"github.com/matheusschuckar/look-pro/feedback"
	"github.com/matheusschuckar/look-pro/store"
)

// EnvPrefix 是环境变量前缀。层级用双下划线分隔：
// LOOKRANK_POLICY__HALF_LIFE_DAYS=7 对应 policy.half_life_days。
const EnvPrefix = "LOOKRANK_"

type Settings struct {
	Server   Server               `koanf:"server"`
	Store    store.Config         `koanf:"store"`
	Log      Log                  `koanf:"log"`
	Policy   engine.Policy        `koanf:"policy"`
	Pipeline string               `koanf:"pipeline"`
	Feedback Feedback             `koanf:"feedback"`
	Kafka    feedback.KafkaConfig `koanf:"kafka"`
}

type Server struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	SessionIdleTTL  time.Duration `koanf:"session_idle_ttl" validate:"gte=0"`
	MaxSessions     int           `koanf:"max_sessions" validate:"gte=0"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

type Feedback struct {
	QueueSize int `koanf:"queue_size" validate:"gte=0"`
}

// Default 返回默认配置。
func Default() Settings {
	return Settings{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SessionIdleTTL:  30 * time.Minute,
			MaxSessions:     10000,
		},
		Store:    store.Config{Backend: "memory"},
		Log:      Log{Level: "info", Format: "console"},
		Policy:   engine.DefaultPolicy(),
		Feedback: Feedback{QueueSize: 1024},
	}
}

var validate = validator.New()

// Load 依次合并默认值、path 指向的 YAML 文件（可为空）与环境变量，并校验。
func Load(path string) (*Settings, error) {
	return load(path, os.Environ())
}

func load(path string, environ []string) (*Settings, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	for key, val := range envOverrides(environ) {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("env %s: %w", key, err)
		}
	}

	s := Default()
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate 校验全部配置，返回所有字段错误。
func (s *Settings) Validate() error {
	var errs []error
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}
	if s.Store.Backend == "redis" && s.Store.Addr == "" {
		errs = append(errs, errors.New("store.addr is required for the redis backend"))
	}
	return errors.Join(errs...)
}

// envOverrides 把 LOOKRANK_A__B_C=v 转为 a.b_c=v；brokers 按逗号拆分。
func envOverrides(environ []string) map[string]any {
	out := make(map[string]any)
	for _, kv := range environ {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, EnvPrefix), "__", "."))
		if key == "" {
			continue
		}
		if strings.HasSuffix(key, "brokers") {
			out[key] = strings.Split(val, ",")
			continue
		}
		out[key] = val
	}
	return out
}
