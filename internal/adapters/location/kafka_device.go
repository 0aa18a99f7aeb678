package location

import (
	"context"
	"errors"
	"io"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/ports"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaReader is the subset of *kafka.Reader the device needs.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader builds a consumer-group reader with manual commits.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       1e6,
		MaxWait:        500 * time.Millisecond,
	})
}

// KafkaDevice is a LocationDevice fed by a topic of JSON fixes, for
// telematics units that publish through a broker instead of connecting
// directly. Offsets are committed after each fix is published.
type KafkaDevice struct {
	hub    *fixHub
	reader KafkaReader

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewKafkaDevice(reader KafkaReader) *KafkaDevice {
	return &KafkaDevice{hub: newFixHub(nil), reader: reader}
}

func (d *KafkaDevice) CurrentFix(ctx context.Context, opts ports.FixOptions) (domain.Fix, error) {
	return d.hub.CurrentFix(ctx, opts)
}

func (d *KafkaDevice) Watch(ctx context.Context, opts ports.FixOptions) (<-chan domain.Fix, error) {
	return d.hub.Watch(ctx, opts)
}

// Start runs the consume loop until ctx is done or Close is called.
func (d *KafkaDevice) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		log.Println("location: kafka fix consumer started")
		for {
			msg, err := d.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					log.Println("location: kafka fix consumer stopped")
					return
				}
				log.Printf("location: kafka fetch failed: %v", err)

				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			d.handle(ctx, msg)
		}
	}()
}

func (d *KafkaDevice) handle(ctx context.Context, msg kafka.Message) {
	fix, err := decodeFix(msg.Value)
	if err == nil {
		err = d.hub.Publish(fix)
	}
	if err != nil {
		log.Printf("location: skipping fix topic=%s partition=%d offset=%d err=%v",
			msg.Topic, msg.Partition, msg.Offset, err)
	}

	if err := d.reader.CommitMessages(ctx, msg); err != nil {
		log.Printf("location: commit failed topic=%s partition=%d offset=%d err=%v",
			msg.Topic, msg.Partition, msg.Offset, err)
	}
}

// Close stops the consume loop and closes the reader.
func (d *KafkaDevice) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	return d.reader.Close()
}
