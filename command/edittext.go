package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/pdfedit/edit"
)

// TextEditor edits text and snapshots single pages. *edit.Engine
// implements it.
type TextEditor interface {
	EditText(ctx context.Context, req edit.Request) (edit.Result, error)
	CapturePageSnapshot(ctx context.Context, i int) ([]byte, error)
	RestorePageSnapshot(ctx context.Context, i int, data []byte) error
}

// EditText replaces text on one page. Undo restores the page as it was
// before; redo runs the edit again from the same request.
type EditText struct {
	editor TextEditor
	req    edit.Request
	before []byte
	result edit.Result
}

func NewEditText(editor TextEditor, req edit.Request) *EditText {
	return &EditText{editor: editor, req: req}
}

func (c *EditText) Execute(ctx context.Context) error {
	before, err := c.editor.CapturePageSnapshot(ctx, c.req.Page-1)
	if err != nil {
		return err
	}
	res, err := c.editor.EditText(ctx, c.req)
	if err != nil {
		return err
	}
	c.before, c.result = before, res
	return nil
}

func (c *EditText) Undo(ctx context.Context) error {
	if c.before == nil {
		return errors.New("edit was never applied")
	}
	return c.editor.RestorePageSnapshot(ctx, c.req.Page-1, c.before)
}

func (c *EditText) Description() string {
	return fmt.Sprintf("Edit text on page %d", c.req.Page)
}

// Result is the outcome of the latest execution.
func (c *EditText) Result() edit.Result { return c.result }
