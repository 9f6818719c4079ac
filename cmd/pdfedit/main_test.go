package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/builder"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/edit"
	"github.com/wudi/pdfedit/writer"
)

func TestParseRect(t *testing.T) {
	r, err := parseRect("100, 20,10,40")
	require.NoError(t, err)
	assert.Equal(t, coords.Rect{X0: 10, Y0: 20, X1: 100, Y1: 40}, r)

	for _, bad := range []string{"", "1,2,3", "a,b,c,d"} {
		_, err := parseRect(bad)
		assert.Error(t, err, bad)
	}
}

func TestEditFlagsRequest(t *testing.T) {
	req, err := editFlags{page: 2, rect: "1,2,3,4", moveTo: "5,6,7,8", text: "x", markup: "html", run: true}.request()
	require.NoError(t, err)
	assert.Equal(t, 2, req.Page)
	assert.Equal(t, edit.ModeRun, req.Mode)
	require.NotNil(t, req.NewRect)
	assert.Equal(t, 5.0, req.NewRect.X0)

	_, err = editFlags{page: 1, markup: "plain"}.request()
	assert.Error(t, err)
	_, err = editFlags{page: 1, rect: "1,2,3,4", markup: "rtf"}.request()
	assert.Error(t, err)
}

func TestTextAndEditCommands(t *testing.T) {
	ctx := context.Background()
	doc, err := builder.NewBuilder(nil).NewPage(612, 792).
		DrawText("Invoice #100", 72, 720, builder.TextOptions{Font: "Helvetica", FontSize: 12}).
		Finish().Build()
	require.NoError(t, err)
	data, err := writer.Bytes(ctx, doc, writer.Config{Compress: true})
	require.NoError(t, err)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	require.NoError(t, os.WriteFile(in, data, 0o644))

	run := func(args ...string) string {
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs(args)
		require.NoError(t, root.ExecuteContext(ctx))
		return out.String()
	}

	assert.Contains(t, run("text", in), "Invoice #100")
	assert.Contains(t, run("blocks", in), "p0-b0")

	out := filepath.Join(dir, "out.pdf")
	assert.Contains(t, run("edit", in, "-o", out, "--id", "p0-b0", "--text", "Invoice #200"), "p0-b0")
	assert.Contains(t, run("text", out), "Invoice #200")
}
