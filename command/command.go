// Package command records document mutations so they can be undone and
// redone, and tracks whether the document differs from its last save.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/pdfedit/observability"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Command is a reversible mutation. Execute is called for the first run and
// for every redo; Undo restores the state Execute started from.
type Command interface {
	Execute(ctx context.Context) error
	Undo(ctx context.Context) error
	Description() string
}

// noSave marks a save position that can no longer be reached.
const noSave = -1

// Manager is a linear history. Commands before pos are applied; commands
// from pos on can be redone. It is not safe for concurrent use.
type Manager struct {
	cmds  []Command
	pos   int
	saved int
	limit int

	logger observability.Logger
}

type Option func(*Manager)

// WithLimit keeps at most n commands, dropping the oldest. Zero means no
// limit.
func WithLimit(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.limit = n
		}
	}
}

func WithLogger(l observability.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute runs c and records it. A failed command is not recorded.
func (m *Manager) Execute(ctx context.Context, c Command) error {
	if err := c.Execute(ctx); err != nil {
		return err
	}
	m.Record(c)
	return nil
}

// Record appends a command that has already been applied. Anything that
// could be redone is discarded.
func (m *Manager) Record(c Command) {
	if m.saved > m.pos {
		m.saved = noSave
	}
	m.cmds = append(m.cmds[:m.pos], c)
	m.pos++
	if m.limit > 0 && len(m.cmds) > m.limit {
		drop := len(m.cmds) - m.limit
		m.cmds = append([]Command(nil), m.cmds[drop:]...)
		m.pos -= drop
		if m.saved != noSave {
			m.saved -= drop
			if m.saved < 0 {
				m.saved = noSave
			}
		}
	}
	m.logger.Debug("command recorded", observability.String("command", c.Description()), observability.Int("depth", m.pos))
}

// Undo reverts the last applied command. On failure the history is
// unchanged.
func (m *Manager) Undo(ctx context.Context) error {
	if !m.CanUndo() {
		return ErrNothingToUndo
	}
	c := m.cmds[m.pos-1]
	if err := c.Undo(ctx); err != nil {
		return fmt.Errorf("undo %s: %w", c.Description(), err)
	}
	m.pos--
	m.logger.Debug("command undone", observability.String("command", c.Description()))
	return nil
}

// Redo re-applies the next undone command. On failure the history is
// unchanged.
func (m *Manager) Redo(ctx context.Context) error {
	if !m.CanRedo() {
		return ErrNothingToRedo
	}
	c := m.cmds[m.pos]
	if err := c.Execute(ctx); err != nil {
		return fmt.Errorf("redo %s: %w", c.Description(), err)
	}
	m.pos++
	m.logger.Debug("command redone", observability.String("command", c.Description()))
	return nil
}

func (m *Manager) CanUndo() bool { return m.pos > 0 }

func (m *Manager) CanRedo() bool { return m.pos < len(m.cmds) }

// MarkSaved records the current state as the saved one.
func (m *Manager) MarkSaved() { m.saved = m.pos }

// HasPendingChanges reports whether the state differs from the last save.
// Once the saved state has been discarded from the redo tail it stays
// pending until the next save.
func (m *Manager) HasPendingChanges() bool { return m.saved != m.pos }

// Clear forgets every command and treats the current state as saved. It
// is meant for opening and closing documents.
func (m *Manager) Clear() {
	m.cmds, m.pos, m.saved = nil, 0, 0
}

// UndoDescription describes the command Undo would revert.
func (m *Manager) UndoDescription() string {
	if !m.CanUndo() {
		return ""
	}
	return m.cmds[m.pos-1].Description()
}

// RedoDescription describes the command Redo would apply.
func (m *Manager) RedoDescription() string {
	if !m.CanRedo() {
		return ""
	}
	return m.cmds[m.pos].Description()
}

// Len is the number of recorded commands, applied or not.
func (m *Manager) Len() int { return len(m.cmds) }
