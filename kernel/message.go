package kernel

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/log"
	"github.com/sahneos/karnal64/pkg/waiter"
)

// Message is an opaque payload plus its sender, queued FIFO on the
// receiver.
type Message struct {
	Sender TaskID
	Data   []byte
}

// MessageQueue is a task's inbound mailbox. Receive is non-blocking;
// callers wanting to block compose the queue's waiter with an external
// wait primitive.
type MessageQueue struct {
	mu sync.Mutex

	messages []Message

	events waiter.Waiter
}

func NewMessageQueue() *MessageQueue {
	return &MessageQueue{}
}

func (q *MessageQueue) push(m Message) {
	q.mu.Lock()
	q.messages = append(q.messages, m)
	q.mu.Unlock()

	q.events.Notify(MessageQueued)
}

// Receive copies the head message into buf and dequeues it. An empty
// queue reports NoMessage. A buffer smaller than the head message
// reports InvalidArgument and leaves the message queued, so delivery
// stays at-most-once over successful dequeues only.
func (q *MessageQueue) Receive(buf []byte) (int, TaskID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return 0, 0, errors.Wrap(abi.NoMessage, "queue empty")
	}

	head := q.messages[0]

	if len(buf) < len(head.Data) {
		return 0, 0, errors.Wrapf(abi.InvalidArgument, "buffer %d smaller than message %d", len(buf), len(head.Data))
	}

	q.messages = q.messages[1:]

	return copy(buf, head.Data), head.Sender, nil
}

// Pending reports the number of queued messages.
func (q *MessageQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.messages)
}

// RegisterChannel signs c up for queued-message notifications so a
// caller can build a blocking receive externally.
func (q *MessageQueue) RegisterChannel(c chan struct{}) *waiter.Event {
	return q.events.RegisterChannel(MessageQueued, c)
}

func (q *MessageQueue) Unregister(e *waiter.Event) {
	q.events.Unregister(e)
}

// Send appends payload to the target task's queue. Unknown or exited
// targets report NotFound. The payload is copied; the sender's buffer
// is not retained.
func (k *Kernel) Send(target TaskID, sender TaskID, payload []byte) error {
	t, ok := k.tasks.Lookup(target)
	if !ok || t.Exited() {
		return errors.Wrapf(abi.NotFound, "task %d", target)
	}

	data := make([]byte, len(payload))
	copy(data, payload)

	t.queue.push(Message{
		Sender: sender,
		Data:   data,
	})

	log.L.Trace("message-send", "from", sender, "to", target, "len", len(payload))

	return nil
}
