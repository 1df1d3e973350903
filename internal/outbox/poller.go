package outbox

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// KafkaPublisher writes events keyed by order number so all events of one
// order land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokersCSV string) *KafkaPublisher {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: e.Topic,
		Key:   []byte(e.Key),
		Value: e.Payload,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "event_id", Value: []byte(e.EventID)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

type Poller struct {
	store     Store
	pub       Publisher
	tick      time.Duration
	batchSize int
}

func NewPoller(store Store, pub Publisher) *Poller {
	return &Poller{store: store, pub: pub, tick: time.Second, batchSize: 100}
}

// Run relays unsent events until ctx is cancelled. Delivery is at least once.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.relay(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// relay publishes one batch in id order and stops at the first failure so a
// later event never overtakes an earlier one.
func (p *Poller) relay(ctx context.Context) int {
	events, err := p.store.FetchUnsent(ctx, p.batchSize)
	if err != nil {
		log.Printf("[outbox] fetch err=%v", err)
		return 0
	}
	sent := 0
	for _, e := range events {
		if err := p.pub.Publish(ctx, e); err != nil {
			log.Printf("[outbox] publish id=%d type=%s err=%v", e.ID, e.EventType, err)
			return sent
		}
		if err := p.store.MarkSent(ctx, e.ID); err != nil {
			log.Printf("[outbox] mark sent id=%d err=%v", e.ID, err)
			return sent
		}
		sent++
	}
	return sent
}
