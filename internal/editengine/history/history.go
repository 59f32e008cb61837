// Package history provides the in-memory undo/redo stacks behind the edit
// engine's History contract. Pushing a new operation clears the redo stack:
// redo replays stored byte-exact edits, which are only valid against the
// content the matching undo produced, so a fork after undo invalidates them.
package history

import (
	"sync"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
)

// DefaultMaxEntries bounds the undo stack. The oldest entries are dropped
// first; an agent session rarely needs more than a few dozen reversals.
const DefaultMaxEntries = 100

// Stack is a bounded pair of undo/redo stacks. Safe for concurrent use.
type Stack struct {
	mu   sync.Mutex
	undo []editengine.HistoryItem
	redo []editengine.HistoryItem
	max  int
}

// New creates a stack keeping at most max undoable entries. Non-positive
// max falls back to the default.
func New(max int) *Stack {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Stack{max: max}
}

// PushOperation records a new operation and clears the redo stack.
func (s *Stack) PushOperation(item editengine.HistoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo = append(s.undo, item)
	if len(s.undo) > s.max {
		s.undo = s.undo[len(s.undo)-s.max:]
	}
	s.redo = s.redo[:0]
}

// Undo pops the most recent operation onto the redo stack and returns it.
func (s *Stack) Undo() (editengine.HistoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		return editengine.HistoryItem{}, false
	}
	item := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, item)
	return item, true
}

// Redo pops the most recently undone operation back onto the undo stack
// and returns it.
func (s *Stack) Redo() (editengine.HistoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.redo) == 0 {
		return editengine.HistoryItem{}, false
	}
	item := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, item)
	return item, true
}

// ReplaceOperation swaps the stored item with the given id in place. Used
// by the batch protocol to turn a pending placeholder into the completed
// operation.
func (s *Stack) ReplaceOperation(id string, item editengine.HistoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.undo {
		if s.undo[i].ID() == id {
			s.undo[i] = item
			return
		}
	}
}

// RemoveOperation deletes the stored item with the given id, if present.
func (s *Stack) RemoveOperation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.undo {
		if s.undo[i].ID() == id {
			s.undo = append(s.undo[:i], s.undo[i+1:]...)
			return
		}
	}
}

// CanUndo reports whether an undoable operation exists.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

// CanRedo reports whether a redoable operation exists.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// Entries returns the undoable operations, most recent first.
func (s *Stack) Entries() []editengine.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]editengine.HistoryItem, 0, len(s.undo))
	for i := len(s.undo) - 1; i >= 0; i-- {
		out = append(out, s.undo[i])
	}
	return out
}
