package broadcaster

import (
	"context"
	"encoding/json"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"atomiclifo/domain/lifo"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestBroadcaster_PublishOnce(t *testing.T) {
	g := NewWithT(t)

	stack := lifo.New[int]()
	stack.Push(1)
	stack.Push(2)
	stack.Pop()

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		g.Expect(ev.V).To(Equal(1))
		g.Expect(ev.Type).To(Equal("stats"))
		g.Expect(ev.Instance).NotTo(BeEmpty())
		g.Expect(ev.Len).To(Equal(int64(1)))
		g.Expect(ev.Reclaimed).To(Equal(uint64(1)))
		g.Expect(ev.Generation).To(Equal(uint32(1)))
		return nil
	})

	b := New(stack, producer, "atomiclifo.stats", time.Second, quietLogger())
	g.Expect(b.PublishOnce()).To(Succeed())
	g.Expect(b.Close()).To(Succeed())
}

func TestBroadcaster_PublishError(t *testing.T) {
	g := NewWithT(t)

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	b := New(lifo.New[int](), producer, "atomiclifo.stats", time.Second, quietLogger())
	g.Expect(b.PublishOnce()).To(MatchError(ContainSubstring("send stats event")))
	g.Expect(b.Close()).To(Succeed())
}

// countingProducer accepts everything; only SendMessage and Close are
// used by the broadcaster.
type countingProducer struct {
	sarama.SyncProducer
	sent atomic.Int32
}

func (p *countingProducer) SendMessage(*sarama.ProducerMessage) (int32, int64, error) {
	p.sent.Add(1)
	return 0, 0, nil
}

func (p *countingProducer) Close() error { return nil }

func TestBroadcaster_RunPublishesUntilCancel(t *testing.T) {
	g := NewWithT(t)

	producer := &countingProducer{}
	b := New(lifo.New[int](), producer, "atomiclifo.stats", 5*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	g.Eventually(producer.sent.Load, time.Second).Should(BeNumerically(">=", 2))
	cancel()
	g.Eventually(done, time.Second).Should(BeClosed())
}
