package feedback

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaConfig 是 Kafka 事件流配置。
type KafkaConfig struct {
	Brokers       []string      `koanf:"brokers"`
	Topic         string        `koanf:"topic"`
	ClientID      string        `koanf:"client_id"`
	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`
	Compression   string        `koanf:"compression" validate:"omitempty,oneof=gzip snappy lz4 zstd"`
}

// producer 是 kgo.Client 中 KafkaSink 用到的部分。
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaSink 批量异步地把已应用的事件写入 Kafka，以 UserID 作为消息 key 保证同一用户有序。
type KafkaSink struct {
	client        producer
	topic         string
	batchSize     int
	flushInterval time.Duration
	logger        zerolog.Logger

	mu        sync.Mutex
	buffer    []Event
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
	stopCh    chan struct{}
}

// NewKafkaSink 创建 Kafka 客户端并启动后台刷新协程。
func NewKafkaSink(cfg KafkaConfig, logger zerolog.Logger) (*KafkaSink, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "lookpro-feedback"
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.LeaderAck()),
		kgo.DisableIdempotentWrite(),
	}
	switch cfg.Compression {
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return newKafkaSink(client, cfg, logger), nil
}

func newKafkaSink(client producer, cfg KafkaConfig, logger zerolog.Logger) *KafkaSink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	s := &KafkaSink{
		client:        client,
		topic:         cfg.Topic,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		logger:        logger,
		buffer:        make([]Event, 0, cfg.BatchSize),
		stopCh:        make(chan struct{}),
	}
	s.wg.Add(1)
	go s.flushLoop()
	return s
}

// Record 缓冲事件，达到批量大小时立即发送。
func (s *KafkaSink) Record(ev Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.buffer = append(s.buffer, ev)
	full := len(s.buffer) >= s.batchSize
	s.mu.Unlock()

	if full {
		s.flush()
	}
	return nil
}

func (s *KafkaSink) flushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stopCh:
			return
		}
	}
}

func (s *KafkaSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	events := make([]Event, len(s.buffer))
	copy(events, s.buffer)
	s.buffer = s.buffer[:0]
	s.mu.Unlock()

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Warn().Err(err).Str("event", ev.ID).Msg("event not serializable")
			continue
		}
		record := &kgo.Record{Topic: s.topic, Key: []byte(ev.UserID), Value: data}
		s.client.Produce(context.Background(), record, func(r *kgo.Record, err error) {
			if err != nil {
				s.logger.Warn().Err(err).Str("topic", r.Topic).Msg("event not delivered")
			}
		})
	}
}

// Close 发送剩余缓冲并关闭客户端。
func (s *KafkaSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.stopCh)
		s.wg.Wait()
		s.flush()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.client.Flush(ctx)
		s.client.Close()
	})
	return err
}

var _ Sink = (*KafkaSink)(nil)
