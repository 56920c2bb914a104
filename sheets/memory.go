package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryClient is a process-local spreadsheet backend
type MemoryClient struct {
	mu    sync.Mutex
	books map[string]*MemorySpreadsheet
}

// NewMemoryClient creates a backend holding the named, empty documents
func NewMemoryClient(documents ...string) *MemoryClient {
	c := &MemoryClient{books: make(map[string]*MemorySpreadsheet)}
	for _, name := range documents {
		c.books[name] = &MemorySpreadsheet{tabs: make(map[string]*MemoryWorksheet)}
	}
	return c
}

func (c *MemoryClient) Open(_ context.Context, document string) (Spreadsheet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	book, ok := c.books[document]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %q: %w", document, ErrNotFound)
	}
	return book, nil
}

// Document returns the named spreadsheet for direct inspection
func (c *MemoryClient) Document(name string) (*MemorySpreadsheet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	book, ok := c.books[name]
	return book, ok
}

type MemorySpreadsheet struct {
	mu   sync.Mutex
	tabs map[string]*MemoryWorksheet
}

func (s *MemorySpreadsheet) Worksheet(_ context.Context, title string) (Worksheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.tabs[title]
	if !ok {
		return nil, fmt.Errorf("worksheet %q: %w", title, ErrNotFound)
	}
	return ws, nil
}

func (s *MemorySpreadsheet) AddWorksheet(_ context.Context, title string) (Worksheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[title]; ok {
		return nil, fmt.Errorf("worksheet %q already exists", title)
	}
	ws := &MemoryWorksheet{title: title}
	s.tabs[title] = ws
	return ws, nil
}

type MemoryWorksheet struct {
	mu    sync.Mutex
	title string
	rows  [][]string
}

func (w *MemoryWorksheet) Title() string { return w.title }

func (w *MemoryWorksheet) Rows(_ context.Context) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]string, len(w.rows))
	for i, row := range w.rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (w *MemoryWorksheet) AppendRow(_ context.Context, row []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, append([]string(nil), row...))
	return nil
}
