// Package mailbox holds the message queue of a process together with the condition its
// owner blocks on. Apart from [New] and [Mailbox.Len], every method requires the caller to
// hold the mailbox lock.
package mailbox

type Mailbox struct {
	Cond
	msgQ []any
}

func New() *Mailbox {
	return &Mailbox{msgQ: make([]any, 0, 10)}
}

// Add a message to the end of the queue. Does not notify.
func (m *Mailbox) Enqueue(msg any) {
	m.msgQ = append(m.msgQ, msg)
}

// At returns the message at position [i].
func (m *Mailbox) At(i int) any {
	return m.msgQ[i]
}

// Delete removes and returns the message at position [i], preserving the order of the
// rest of the queue.
func (m *Mailbox) Delete(i int) any {
	msg := m.msgQ[i]
	copy(m.msgQ[i:], m.msgQ[i+1:])
	m.msgQ[len(m.msgQ)-1] = nil
	m.msgQ = m.msgQ[:len(m.msgQ)-1]
	return msg
}

// Size is the number of queued messages. Lock must be held.
func (m *Mailbox) Size() int {
	return len(m.msgQ)
}

// Len is [Size] but takes the lock itself.
func (m *Mailbox) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.msgQ)
}

// Drain empties the queue and returns what was in it.
func (m *Mailbox) Drain() []any {
	result := m.msgQ
	m.msgQ = make([]any, 0)
	return result
}
