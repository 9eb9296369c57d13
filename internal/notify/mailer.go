package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"storefront-be/internal/logger"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Message is an email handed to the mail delivery worker.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SaleID  int64  `json:"sale_id"`
}

// Mailer queues mail for asynchronous delivery.
type Mailer interface {
	QueueMail(ctx context.Context, m Message) error
}

type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// KafkaMailer publishes messages to a topic consumed by the mail worker.
type KafkaMailer struct {
	client producer
	topic  string
}

func NewKafkaMailer(brokers []string, topic string) (*KafkaMailer, *kgo.Client, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaMailer{client: cl, topic: topic}, cl, nil
}

func (k *KafkaMailer) QueueMail(ctx context.Context, m Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("mailer", "kafka"),
		zap.Int64("sale_id", m.SaleID),
	)

	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(strconv.FormatInt(m.SaleID, 10)),
		Value: payload,
	}
	// The request context ends with the response; delivery must outlive it.
	k.client.Produce(context.WithoutCancel(ctx), rec, func(_ *kgo.Record, err error) {
		if err != nil {
			log.Error("mail not queued", zap.Error(err))
			return
		}
		log.Debug("mail queued", zap.String("to", m.To))
	})
	return nil
}

// LogMailer only logs messages. It is used when no brokers are configured.
type LogMailer struct{}

func (LogMailer) QueueMail(ctx context.Context, m Message) error {
	logger.FromCtx(ctx).Info("mail delivery disabled",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.Int64("sale_id", m.SaleID),
	)
	return nil
}

var (
	_ Mailer = (*KafkaMailer)(nil)
	_ Mailer = LogMailer{}
)
