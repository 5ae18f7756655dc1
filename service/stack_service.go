package service

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"atomiclifo/domain/lifo"
	"atomiclifo/infra/journal"
	"atomiclifo/infra/sequence"
)

// ErrEmpty is returned by Pop when no item is pending.
var ErrEmpty = errors.New("stack is empty")

// Item is one pushed payload together with the sequence ID it was
// assigned on push.
type Item struct {
	Seq     uint64
	Payload []byte
}

/*
StackService is the only entry point into the stack for the server.

Push and Pop never take a lock; Checkpoint and Restore are meant for
startup and shutdown, when no traffic is flowing.
*/
type StackService struct {
	stack   *lifo.Stack[Item]
	seq     *sequence.Sequencer
	journal *journal.Journal
	log     *logrus.Entry
}

// NewStackService wires all dependencies. j may be nil, in which case
// Checkpoint and Restore do nothing.
func NewStackService(
	stack *lifo.Stack[Item],
	seq *sequence.Sequencer,
	j *journal.Journal,
	log *logrus.Entry,
) *StackService {
	return &StackService{
		stack:   stack,
		seq:     seq,
		journal: j,
		log:     log.WithField("component", "service"),
	}
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Push puts payload on top of the stack and returns its sequence ID.
func (s *StackService) Push(payload []byte) uint64 {
	seq := s.seq.Next()
	s.stack.Push(Item{Seq: seq, Payload: payload})
	return seq
}

// Pop takes the most recently pushed item.
func (s *StackService) Pop() (Item, error) {
	it, ok := s.stack.Pop()
	if !ok {
		return Item{}, ErrEmpty
	}
	return it, nil
}

// Requeue puts an item back without assigning a new sequence ID. Used
// when an item popped for delivery could not be delivered.
func (s *StackService) Requeue(it Item) {
	s.stack.Push(it)
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// Stats returns the stack counters.
func (s *StackService) Stats() lifo.Stats {
	return s.stack.Stats()
}

//
// ──────────────────────────────────────────────────────────
// Checkpointing
// ──────────────────────────────────────────────────────────
//

// Checkpoint drains every pending item into the journal and returns
// how many were saved. The stack is empty afterwards.
func (s *StackService) Checkpoint() (int, error) {
	if s.journal == nil {
		return 0, nil
	}

	var records []journal.Record
	s.stack.Drain(func(it Item) bool {
		records = append(records, journal.Record{Seq: it.Seq, Payload: it.Payload})
		return true
	})

	if err := s.journal.Save(records, s.seq.Current()); err != nil {
		// Failed save: push them back bottom first.
		for i := len(records) - 1; i >= 0; i-- {
			s.stack.Push(Item{Seq: records[i].Seq, Payload: records[i].Payload})
		}
		return 0, errors.Wrap(err, "checkpoint")
	}

	s.log.WithFields(logrus.Fields{
		"items": len(records),
		"seq":   s.seq.Current(),
	}).Info("checkpoint written")
	return len(records), nil
}

// Restore pushes the journalled items back in their original order,
// moves the sequencer past the saved sequence and clears the journal.
func (s *StackService) Restore() (int, error) {
	if s.journal == nil {
		return 0, nil
	}

	records, lastSeq, err := s.journal.Load()
	if err != nil {
		return 0, errors.Wrap(err, "restore")
	}

	// Records are stored top first; push the bottom first.
	for i := len(records) - 1; i >= 0; i-- {
		s.stack.Push(Item{Seq: records[i].Seq, Payload: records[i].Payload})
	}
	s.seq.Observe(lastSeq)

	if err := s.journal.Clear(); err != nil {
		return len(records), errors.Wrap(err, "restore: clear journal")
	}

	s.log.WithFields(logrus.Fields{
		"items": len(records),
		"seq":   lastSeq,
	}).Info("checkpoint restored")
	return len(records), nil
}
