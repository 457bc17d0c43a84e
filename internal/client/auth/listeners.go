package auth

import (
	"slices"
	"sync"
)

type listenerEntry struct {
	fn Listener
	id uint64
}

// Subscribe регистрирует listener и сразу вызывает его с текущим состоянием.
// Listener вызывается синхронно, в порядке подписки, после полного
// применения изменения. Listener не должен вызывать методы Service,
// меняющие Session: уведомления сериализованы.
func (s *Service) Subscribe(fn Listener) (unsubscribe func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	session := s.session.Clone()
	s.mu.Unlock()

	// replay-on-subscribe
	fn(session != nil, session)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners = slices.DeleteFunc(s.listeners, func(e listenerEntry) bool {
				return e.id == id
			})
		})
	}
}

// commit применяет apply под блокировкой состояния и, если apply вернул
// true, уведомляет подписчиков о новом состоянии
func (s *Service) commit(apply func() bool) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !apply() {
		s.mu.Unlock()
		return false
	}
	session := s.session.Clone()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	authenticated := session != nil
	for _, l := range listeners {
		// Каждый listener получает свою копию
		l.fn(authenticated, session.Clone())
	}

	return true
}
