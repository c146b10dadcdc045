// Package command wraps every mutating user action in a reversible unit on a
// single linear undo/redo stack.
package command

import (
	"errors"
	"fmt"
	"sync"
)

// Reversibility tags how completely a command can be undone.
type Reversibility int

const (
	// FullyReversible commands restore every observable effect on revert.
	FullyReversible Reversibility = iota
	// PartiallyReversible commands leave some side effect in place, named
	// in Outcome.Reason; deleted files stay deleted.
	PartiallyReversible
)

// Outcome reports what applying or reverting a command did. Callers assert
// on irreversibility explicitly instead of inferring it.
type Outcome struct {
	Reversibility Reversibility
	Reason        string
}

func (o Outcome) String() string {
	if o.Reversibility == PartiallyReversible {
		return fmt.Sprintf("partially reversible: %s", o.Reason)
	}
	return "fully reversible"
}

// Command is one reversible user action. Commands are self-contained: they
// capture enough state at construction to revert without re-querying
// mutable external state.
type Command interface {
	Name() string
	Apply() (Outcome, error)
	Revert() (Outcome, error)
}

var (
	// ErrStackBusy is returned when a second goroutine touches the stack
	// while a mutation is in flight. The stack belongs to the control
	// thread; workers report results, they never push commands.
	ErrStackBusy     = errors.New("undo stack busy: commands must come from the control thread")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Stack is the process-wide linear undo/redo history. Applying a new command
// after undoing discards the undone redo branch; history never branches.
type Stack struct {
	mu   sync.Mutex
	undo []Command
	redo []Command
}

// NewStack returns an empty history.
func NewStack() *Stack {
	return &Stack{}
}

// Do applies a command and records it. The redo branch is discarded.
func (s *Stack) Do(cmd Command) (Outcome, error) {
	if !s.mu.TryLock() {
		return Outcome{}, ErrStackBusy
	}
	defer s.mu.Unlock()

	out, err := cmd.Apply()
	if err != nil {
		return out, err
	}
	s.undo = append(s.undo, cmd)
	s.redo = nil
	return out, nil
}

// Undo reverts the most recent command. On revert failure the command stays
// on the undo stack so the user can retry.
func (s *Stack) Undo() (Outcome, error) {
	if !s.mu.TryLock() {
		return Outcome{}, ErrStackBusy
	}
	defer s.mu.Unlock()

	if len(s.undo) == 0 {
		return Outcome{}, ErrNothingToUndo
	}
	cmd := s.undo[len(s.undo)-1]
	out, err := cmd.Revert()
	if err != nil {
		return out, err
	}
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, cmd)
	return out, nil
}

// Redo re-applies the most recently undone command.
func (s *Stack) Redo() (Outcome, error) {
	if !s.mu.TryLock() {
		return Outcome{}, ErrStackBusy
	}
	defer s.mu.Unlock()

	if len(s.redo) == 0 {
		return Outcome{}, ErrNothingToRedo
	}
	cmd := s.redo[len(s.redo)-1]
	out, err := cmd.Apply()
	if err != nil {
		return out, err
	}
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, cmd)
	return out, nil
}

// CanUndo reports whether history holds an applied command.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

// CanRedo reports whether history holds an undone command.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// UndoName returns the name of the command Undo would revert.
func (s *Stack) UndoName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		return ""
	}
	return s.undo[len(s.undo)-1].Name()
}

// RedoName returns the name of the command Redo would re-apply.
func (s *Stack) RedoName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.redo) == 0 {
		return ""
	}
	return s.redo[len(s.redo)-1].Name()
}
