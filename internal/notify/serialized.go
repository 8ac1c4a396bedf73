package notify

import (
	"context"
	"sync"
)

type serialized struct {
	mu   sync.Mutex
	next Notifier
}

// Serialized wraps n so that only one notification is dispatched at a time.
func Serialized(n Notifier) Notifier {
	if s, ok := n.(*serialized); ok {
		return s
	}
	return &serialized{next: n}
}

func (s *serialized) Notify(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Notify(ctx, n)
}
