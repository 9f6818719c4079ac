package command

import (
	"context"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// DocumentStore captures and restores whole documents as bytes.
type DocumentStore interface {
	CaptureDocSnapshot(ctx context.Context) ([]byte, error)
	RestoreDocSnapshot(ctx context.Context, data []byte) error
}

// Snapshot is a command whose states are whole-document snapshots. It
// serves every structural change.
type Snapshot struct {
	// Structural is set for changes to the page count or order, after
	// which every page view is stale.
	Structural bool

	store       DocumentStore
	description string
	before      []byte
	after       []byte
	digests     [2][blake2b.Size256]byte
}

// Capture applies fn to the document held by store and returns the
// command that toggles between the states before and after it. When fn
// fails the document is restored and no command is returned. The live
// document is reloaded from the after state, so a later redo starts from
// exactly the same document.
func Capture(ctx context.Context, store DocumentStore, description string, fn func(context.Context) error) (*Snapshot, error) {
	before, err := store.CaptureDocSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx); err != nil {
		if rerr := store.RestoreDocSnapshot(context.WithoutCancel(ctx), before); rerr != nil {
			return nil, fmt.Errorf("%s: %w (restore: %v)", description, err, rerr)
		}
		return nil, err
	}
	after, err := store.CaptureDocSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.RestoreDocSnapshot(ctx, after); err != nil {
		return nil, err
	}
	return NewSnapshot(store, description, before, after), nil
}

// NewSnapshot wraps states captured by the caller.
func NewSnapshot(store DocumentStore, description string, before, after []byte) *Snapshot {
	return &Snapshot{
		store:       store,
		description: description,
		before:      before,
		after:       after,
		digests:     [2][blake2b.Size256]byte{blake2b.Sum256(before), blake2b.Sum256(after)},
	}
}

func (s *Snapshot) Execute(ctx context.Context) error {
	return s.restore(ctx, s.after, 1)
}

func (s *Snapshot) Undo(ctx context.Context) error {
	return s.restore(ctx, s.before, 0)
}

func (s *Snapshot) Description() string { return s.description }

// Changed reports whether the command altered the document bytes.
func (s *Snapshot) Changed() bool { return s.digests[0] != s.digests[1] }

// restore checks the held bytes against the digest taken at capture time
// before loading them.
func (s *Snapshot) restore(ctx context.Context, data []byte, which int) error {
	if blake2b.Sum256(data) != s.digests[which] {
		return fmt.Errorf("%s: snapshot bytes changed since capture", s.description)
	}
	return s.store.RestoreDocSnapshot(ctx, data)
}
