package etree

// EventKind names one class of parse event a TreeBuilder can record.
type EventKind int

const (
	StartEvent EventKind = iota + 1
	EndEvent
	StartNSEvent
	EndNSEvent
)

func (k EventKind) String() string {
	switch k {
	case StartEvent:
		return "start"
	case EndEvent:
		return "end"
	case StartNSEvent:
		return "start-ns"
	case EndNSEvent:
		return "end-ns"
	default:
		return "unknown"
	}
}

// Event is one recorded parse event. Elem is set for start and end
// events; Prefix and URI are set for start-ns events and Prefix alone for
// end-ns events.
type Event struct {
	Kind   EventKind
	Elem   *Element
	Prefix string
	URI    string
}

// EventQueue is a FIFO of recorded events. Events become observable as
// soon as the builder emits them, so a caller can drain the queue between
// feeds of a document still being parsed. Not safe for concurrent use.
type EventQueue struct {
	items []Event
	head  int
}

func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

func (q *EventQueue) push(ev Event) {
	q.items = append(q.items, ev)
}

// Pop removes and returns the oldest event. The second return is false
// when the queue is empty.
func (q *EventQueue) Pop() (Event, bool) {
	if q.head >= len(q.items) {
		if q.head > 0 {
			q.items = q.items[:0]
			q.head = 0
		}
		return Event{}, false
	}
	ev := q.items[q.head]
	q.items[q.head] = Event{}
	q.head++
	return ev, true
}

func (q *EventQueue) Len() int {
	return len(q.items) - q.head
}
