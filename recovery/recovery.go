// Package recovery decides what the parser does when it meets malformed input.
package recovery

import (
	"context"
	"fmt"
)

type Strategy interface {
	OnError(ctx context.Context, err error, location Location) Action
}

type Location struct {
	ByteOffset int64
	ObjectNum  int
	ObjectGen  int
	Component  string
}

func (l Location) String() string {
	if l.ObjectNum > 0 {
		return fmt.Sprintf("%s@%d (obj %d %d)", l.Component, l.ByteOffset, l.ObjectNum, l.ObjectGen)
	}
	return fmt.Sprintf("%s@%d", l.Component, l.ByteOffset)
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionFix
	ActionWarn
)

// StrictStrategy fails on the first error.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy { return &StrictStrategy{} }

func (s *StrictStrategy) OnError(context.Context, error, Location) Action { return ActionFail }

// LenientStrategy records every error and asks the caller to skip the
// offending object.
type LenientStrategy struct {
	Errors []error
}

func NewLenientStrategy() *LenientStrategy { return &LenientStrategy{} }

func (s *LenientStrategy) OnError(_ context.Context, err error, location Location) Action {
	s.Errors = append(s.Errors, fmt.Errorf("[%s]: %w", location, err))
	return ActionSkip
}
