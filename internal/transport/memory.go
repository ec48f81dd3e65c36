package transport

import (
	"context"
	"sync"

	"cloak/internal/domain"
)

// MemoryHub is an in-process Directory and Transport: bundles and per-party
// envelope queues held in maps. It backs tests and local two-party demos.
type MemoryHub struct {
	mu      sync.Mutex
	bundles map[domain.RemoteIdentity]domain.PreKeyBundle
	queues  map[domain.RemoteIdentity][]domain.EncryptedEnvelope
}

// NewMemoryHub returns an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		bundles: make(map[domain.RemoteIdentity]domain.PreKeyBundle),
		queues:  make(map[domain.RemoteIdentity][]domain.EncryptedEnvelope),
	}
}

// RegisterPreKeyBundle stores the bundle for its identity.
func (h *MemoryHub) RegisterPreKeyBundle(ctx context.Context, bundle domain.PreKeyBundle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bundles[bundle.Identity] = bundle
	return nil
}

// FetchPreKeyBundle returns the bundle for remote, or ErrNoPreKeyBundle.
func (h *MemoryHub) FetchPreKeyBundle(ctx context.Context, remote domain.RemoteIdentity) (domain.PreKeyBundle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	bundle, ok := h.bundles[remote]
	if !ok {
		return domain.PreKeyBundle{}, domain.ErrNoPreKeyBundle
	}
	return bundle, nil
}

// SendEnvelope appends the envelope to its recipient's queue.
func (h *MemoryHub) SendEnvelope(ctx context.Context, env domain.EncryptedEnvelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queues[env.To] = append(h.queues[env.To], env)
	return nil
}

// FetchEnvelopes returns (without removing) up to limit queued envelopes.
func (h *MemoryHub) FetchEnvelopes(ctx context.Context, me domain.RemoteIdentity, limit int) ([]domain.EncryptedEnvelope, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q := h.queues[me]
	if limit <= 0 || limit > len(q) {
		limit = len(q)
	}
	out := make([]domain.EncryptedEnvelope, limit)
	copy(out, q[:limit])
	return out, nil
}

// AckEnvelopes drops the first count envelopes from the queue.
func (h *MemoryHub) AckEnvelopes(ctx context.Context, me domain.RemoteIdentity, count int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	q := h.queues[me]
	if count > len(q) {
		count = len(q)
	}
	h.queues[me] = q[count:]
	return nil
}

// Compile-time assertions.
var (
	_ domain.Directory = (*MemoryHub)(nil)
	_ domain.Transport = (*MemoryHub)(nil)
)
