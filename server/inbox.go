// File: server/inbox.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unbounded event queue between acceptors, readers and the service loop.

package server

import (
	"net"
	"sync"

	"github.com/eapache/queue"
)

type eventKind int

const (
	eventAccept eventKind = iota
	eventAcceptError
	eventClosed
)

// event is produced by acceptor and reader goroutines.
type event struct {
	kind    eventKind
	conn    *Connection
	netConn net.Conn
	reason  string
	err     error
}

// inbox never blocks producers. signal has capacity one, so a wakeup
// posted while the loop is draining is kept for its next select.
type inbox struct {
	mu     sync.Mutex
	q      *queue.Queue
	signal chan struct{}
}

func newInbox() *inbox {
	return &inbox{
		q:      queue.New(),
		signal: make(chan struct{}, 1),
	}
}

func (b *inbox) push(ev event) {
	b.mu.Lock()
	b.q.Add(ev)
	b.mu.Unlock()
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *inbox) pop() (event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.q.Length() == 0 {
		return event{}, false
	}
	return b.q.Remove().(event), true
}

func (b *inbox) ready() <-chan struct{} {
	return b.signal
}

func (b *inbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.q.Length()
}
