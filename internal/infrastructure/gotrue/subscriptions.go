package gotrue

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/usecase"
)

type listeners struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]usecase.AuthStateListener
	order []uuid.UUID
}

func newListeners() *listeners {
	return &listeners{byID: make(map[uuid.UUID]usecase.AuthStateListener)}
}

func (l *listeners) add(fn usecase.AuthStateListener) usecase.Subscription {
	id := uuid.New()
	l.mu.Lock()
	l.byID[id] = fn
	l.order = append(l.order, id)
	l.mu.Unlock()

	var once sync.Once
	return usecase.SubscriptionFunc(func() {
		once.Do(func() { l.remove(id) })
	})
}

func (l *listeners) remove(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byID, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *listeners) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}

// emit calls every listener in subscription order, outside the lock.
func (l *listeners) emit(event domain.AuthEvent, session *domain.Session) {
	l.mu.RLock()
	fns := make([]usecase.AuthStateListener, 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.byID[id])
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(event, session.Clone())
	}
}
