package mailbox

import "sync"

// Raw is the untyped mailbox: a registry entry whose callback receives the
// raw payload bytes. The creator owns it and must Close it.
type Raw struct {
	m    *Manager
	addr Address
	once sync.Once
}

// NewRaw registers cb with m's registry. It may be called from any goroutine.
func NewRaw(m *Manager, cb RawCallback, mode CallbackMode) *Raw {
	id := m.registry.Register(cb, mode)
	return &Raw{
		m: m,
		addr: Address{
			peer:  m.node.ID(),
			id:    id,
			realm: m.realm,
		},
	}
}

// Address returns the address of the mailbox. It never changes.
func (r *Raw) Address() Address { return r.addr }

// Close deregisters the mailbox. Messages that arrive afterwards are
// dropped. Close waits for a running callback of this mailbox to return and
// must therefore not be called from inside that callback.
func (r *Raw) Close() {
	r.once.Do(func() {
		r.m.registry.Deregister(r.addr.id)
	})
}
