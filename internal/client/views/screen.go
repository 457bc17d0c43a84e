package views

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const clearSequence = "\033[H\033[2J"

// TerminalScreen выводит экраны роутера в io.Writer
type TerminalScreen struct {
	out     io.Writer
	title   string
	content string
	active  string
	mu      sync.Mutex
	clear   bool
}

// NewTerminalScreen создает экран. Если clear == true, перед каждым
// экраном терминал очищается.
func NewTerminalScreen(out io.Writer, clear bool) *TerminalScreen {
	return &TerminalScreen{out: out, clear: clear}
}

// SetTitle запоминает заголовок следующего экрана
func (s *TerminalScreen) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

// SetContent выводит заголовок и содержимое экрана
func (s *TerminalScreen) SetContent(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content = content

	var b strings.Builder
	if s.clear {
		b.WriteString(clearSequence)
	}
	fmt.Fprintf(&b, "== %s ==\n\n", s.title)
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}

	_, _ = io.WriteString(s.out, b.String())
}

// SetActive отмечает активный пункт навигации
func (s *TerminalScreen) SetActive(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = path
}

// Title возвращает текущий заголовок
func (s *TerminalScreen) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Content возвращает последнее выведенное содержимое
func (s *TerminalScreen) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Active возвращает активный путь
func (s *TerminalScreen) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
