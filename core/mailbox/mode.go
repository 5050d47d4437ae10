package mailbox

import "strconv"

// Executor runs functions on numbered execution contexts. Functions
// submitted to the same context run one at a time, in submission order.
// Go is called on the transport's delivery goroutine and must not wait for
// earlier functions to finish. perkey.Scheduler[int] implements it.
type Executor interface {
	Go(context int, fn func()) error
}

// CallbackMode selects where a mailbox callback runs.
type CallbackMode struct {
	scheduled bool
	context   int
}

// Inline runs the callback on the goroutine that received the message. The
// callback must be fast and must not block.
var Inline = CallbackMode{}

// Scheduled runs the callback later on execution context n of the manager's
// executor. Messages received from one peer run in receipt order.
func Scheduled(n int) CallbackMode {
	return CallbackMode{scheduled: true, context: n}
}

func (m CallbackMode) IsScheduled() bool { return m.scheduled }

// Context returns the execution context of a scheduled mode.
func (m CallbackMode) Context() int { return m.context }

func (m CallbackMode) String() string {
	if !m.scheduled {
		return "inline"
	}
	return "scheduled(" + strconv.Itoa(m.context) + ")"
}

// label is the low-cardinality form used for metrics.
func (m CallbackMode) label() string {
	if m.scheduled {
		return "scheduled"
	}
	return "inline"
}
