// File: server/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "sync"

// registry is the ordered set of live connections. Only the service loop
// mutates it; Announce and the debug probes read it under the read lock.
type registry struct {
	mu    sync.RWMutex
	conns []*Connection
}

func (r *registry) add(c *Connection) {
	r.mu.Lock()
	r.conns = append(r.conns, c)
	r.mu.Unlock()
}

// remove deletes c and reports whether it was registered.
func (r *registry) remove(c *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.conns {
		if cur == c {
			copy(r.conns[i:], r.conns[i+1:])
			r.conns[len(r.conns)-1] = nil
			r.conns = r.conns[:len(r.conns)-1]
			return true
		}
	}
	return false
}

func (r *registry) removeAll() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.conns
	r.conns = nil
	return out
}

// snapshot copies the registry in insertion order.
func (r *registry) snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, len(r.conns))
	copy(out, r.conns)
	return out
}

// each visits every connection under the read lock. fn must not block.
func (r *registry) each(fn func(*Connection)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conns {
		fn(c)
	}
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
