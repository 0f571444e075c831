package messaging

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"nestling-tracker/internal/config"
)

// MessageSender is the producer surface the notifiers depend on.
type MessageSender interface {
	SendMessage(key string, value []byte, headers map[string]string) error
}

// KafkaProducer publishes messages to a single topic through a synchronous
// sarama producer.
type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaProducer connects to the configured brokers and returns a
// producer bound to the notification topic.
func NewKafkaProducer(cfg config.KafkaConfig) (*KafkaProducer, error) {
	saramaConfig, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	zap.S().Infow("Kafka producer connected", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &KafkaProducer{
		producer: producer,
		topic:    cfg.Topic,
	}, nil
}

func buildSaramaConfig(cfg config.KafkaConfig) (*sarama.Config, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.ClientID
	saramaConfig.Producer.RequiredAcks = sarama.RequiredAcks(cfg.RequiredAcks)
	saramaConfig.Producer.Retry.Max = cfg.Retries
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Timeout = cfg.Timeout

	switch cfg.CompressionType {
	case "none", "":
		saramaConfig.Producer.Compression = sarama.CompressionNone
	case "gzip":
		saramaConfig.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		saramaConfig.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		saramaConfig.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		saramaConfig.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", cfg.CompressionType)
	}

	if cfg.SASL.Enabled {
		if cfg.SASL.Mechanism != "PLAIN" {
			return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASL.Mechanism)
		}
		saramaConfig.Net.SASL.Enable = true
		saramaConfig.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		saramaConfig.Net.SASL.User = cfg.SASL.Username
		saramaConfig.Net.SASL.Password = cfg.SASL.Password
	}

	if cfg.TLS.Enabled {
		tlsConfig, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		saramaConfig.Net.TLS.Enable = true
		saramaConfig.Net.TLS.Config = tlsConfig
	}

	return saramaConfig, nil
}

func buildTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in CA file %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// SendMessage publishes one message keyed for partition affinity, with the
// given headers attached as Kafka record headers.
func (k *KafkaProducer) SendMessage(key string, value []byte, headers map[string]string) error {
	kafkaHeaders := make([]sarama.RecordHeader, 0, len(headers))
	for name, v := range headers {
		kafkaHeaders = append(kafkaHeaders, sarama.RecordHeader{
			Key:   []byte(name),
			Value: []byte(v),
		})
	}

	message := &sarama.ProducerMessage{
		Topic:     k.topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Headers:   kafkaHeaders,
		Timestamp: time.Now(),
	}

	partition, offset, err := k.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	zap.S().Debugw("Kafka message sent", "topic", k.topic, "partition", partition, "offset", offset)
	return nil
}

// Close shuts the underlying producer down.
func (k *KafkaProducer) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}
