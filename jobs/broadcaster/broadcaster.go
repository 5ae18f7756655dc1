package broadcaster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"atomiclifo/domain/lifo"
)

// StatsSource is anything that can report stack counters.
type StatsSource interface {
	Stats() lifo.Stats
}

type Broadcaster struct {
	src      StatsSource
	producer sarama.SyncProducer
	topic    string
	instance string
	interval time.Duration
	log      *logrus.Entry
}

type Event struct {
	V          int    `json:"v"`
	Type       string `json:"type"`
	Instance   string `json:"instance"`
	Generation uint32 `json:"generation"`
	Len        int64  `json:"len"`
	Active     uint32 `json:"active"`
	Retired    int64  `json:"retired"`
	Reclaimed  uint64 `json:"reclaimed"`
	Throttled  uint64 `json:"throttled"`
	At         int64  `json:"at"`
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

// NewProducer dials brokers with the settings the broadcaster expects.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "broadcaster: dial kafka")
	}
	return producer, nil
}

func New(
	src StatsSource,
	producer sarama.SyncProducer,
	topic string,
	interval time.Duration,
	log *logrus.Entry,
) *Broadcaster {
	instance := shortuuid.New()
	return &Broadcaster{
		src:      src,
		producer: producer,
		topic:    topic,
		instance: instance,
		interval: interval,
		log: log.WithFields(logrus.Fields{
			"component": "broadcaster",
			"instance":  instance,
		}),
	}
}

// ------------------------------------------------
// RUN LOOP
// ------------------------------------------------

// Run publishes a stats event every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("stopped")
			return

		case <-ticker.C:
			if err := b.PublishOnce(); err != nil {
				// Next tick sends fresh numbers anyway.
				b.log.WithError(err).Warn("publish failed")
			}
		}
	}
}

// PublishOnce sends a single stats event.
func (b *Broadcaster) PublishOnce() error {
	st := b.src.Stats()
	payload, err := json.Marshal(Event{
		V:          1,
		Type:       "stats",
		Instance:   b.instance,
		Generation: st.Generation,
		Len:        st.Len,
		Active:     st.Active,
		Retired:    st.Retired,
		Reclaimed:  st.Reclaimed,
		Throttled:  st.Throttled,
		At:         time.Now().UnixNano(),
	})
	if err != nil {
		return errors.Wrap(err, "encode stats event")
	}

	_, _, err = b.producer.SendMessage(&sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(b.instance),
		Value: sarama.ByteEncoder(payload),
	})
	return errors.Wrap(err, "send stats event")
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
