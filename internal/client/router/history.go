package router

import "sync"

// History is an in-memory navigation stack: the terminal counterpart of
// browser history. Push drops forward entries, Replace rewrites the
// current entry in place.
type History struct {
	entries []string
	index   int
	mu      sync.Mutex
}

// NewHistory создает историю с одной начальной записью
func NewHistory(initial string) *History {
	if initial == "" {
		initial = "/"
	}
	return &History{entries: []string{initial}}
}

// Push добавляет запись после текущей
func (h *History) Push(location string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries[:h.index+1], location)
	h.index = len(h.entries) - 1
}

// Replace заменяет текущую запись
func (h *History) Replace(location string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.index] = location
}

// Back переходит на предыдущую запись. false, если ее нет.
func (h *History) Back() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index == 0 {
		return h.entries[h.index], false
	}
	h.index--
	return h.entries[h.index], true
}

// Forward переходит на следующую запись. false, если ее нет.
func (h *History) Forward() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index >= len(h.entries)-1 {
		return h.entries[h.index], false
	}
	h.index++
	return h.entries[h.index], true
}

// Location возвращает текущую запись (путь и query)
func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.entries[h.index]
}

// Len возвращает число записей
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.entries)
}
