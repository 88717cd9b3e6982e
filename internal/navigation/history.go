package navigation

import (
	"sync"

	"go-route-guard/internal/interfaces"
)

// Ensure MemoryHistory implements the History interface
var _ interfaces.History = (*MemoryHistory)(nil)

// MemoryHistory is a session history stack with a cursor, like a browser tab's
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
	cursor  int
}

// NewMemoryHistory creates a history whose only entry is initial
func NewMemoryHistory(initial string) *MemoryHistory {
	return &MemoryHistory{entries: []string{initial}}
}

// Push adds path after the cursor, discarding any forward entries
func (h *MemoryHistory) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.cursor+1], path)
	h.cursor++
}

// Replace overwrites the entry at the cursor
func (h *MemoryHistory) Replace(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.cursor] = path
}

func (h *MemoryHistory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor]
}

// Back moves the cursor one entry back and returns the new current path
func (h *MemoryHistory) Back() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor == 0 {
		return h.entries[0], false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Forward moves the cursor one entry forward and returns the new current path
func (h *MemoryHistory) Forward() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor == len(h.entries)-1 {
		return h.entries[h.cursor], false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// Entries returns a copy of the stack and the cursor position
func (h *MemoryHistory) Entries() ([]string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...), h.cursor
}
