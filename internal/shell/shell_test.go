package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/casualjim/swamp"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShell(t *testing.T) (*Shell, *swamp.Exchange, *bytes.Buffer) {
	color.NoColor = true
	x := swamp.NewExclusive()
	var out bytes.Buffer
	s := New(x, &out)
	t.Cleanup(func() {
		_ = s.Close()
		_ = x.Close()
	})
	return s, x, &out
}

func exec(t *testing.T, s *Shell, lines ...string) {
	t.Helper()
	for _, line := range lines {
		quit, err := s.Exec(context.Background(), line)
		require.NoError(t, err, line)
		require.False(t, quit, line)
	}
}

func TestShellCommands(t *testing.T) {
	s, x, out := newShell(t)
	exec(t, s,
		"create /a",
		"create /a/b",
		"create /c",
		"sub /a /c",
		"listen /c",
		"send /a hello   there",
	)

	text := out.String()
	assert.Contains(t, text, "created /a/b")
	assert.Contains(t, text, "listening on /c")
	assert.Contains(t, text, "[/c] /a hello there")

	subs, err := x.Subscribers(swamp.NewPath("/a"))
	require.NoError(t, err)
	assert.Equal(t, []swamp.Path{swamp.NewPath("/c")}, subs)

	out.Reset()
	exec(t, s, "ls")
	assert.Equal(t, "/a\n/a/b\n/c\n", out.String())

	out.Reset()
	exec(t, s, "unsub /a /c", "unlisten /c", "send /c quiet")
	assert.NotContains(t, out.String(), "quiet\n[")
	assert.NotContains(t, out.String(), "[/c]")

	exec(t, s, "link /a /c mirror")
	info, err := x.Describe(swamp.NewPath("/a"))
	require.NoError(t, err)
	assert.Equal(t, swamp.Other("mirror"), info.Links[len(info.Links)-1].Relationship)
	exec(t, s, "unlink /a /c mirror")

	exec(t, s, "delete /a")
	_, err = x.GetNode(swamp.NewPath("/a"))
	assert.ErrorIs(t, err, swamp.ErrNodeNotFound)
}

func TestShellShow(t *testing.T) {
	s, _, out := newShell(t)
	exec(t, s, "create /a")

	out.Reset()
	exec(t, s, "show /a")
	assert.Contains(t, out.String(), "/a")
	assert.Contains(t, out.String(), "parent")
	assert.Contains(t, out.String(), "(root)")

	out.Reset()
	exec(t, s, "show")
	assert.Contains(t, out.String(), "child")
}

func TestShellSchemaAndHelp(t *testing.T) {
	s, _, out := newShell(t)
	exec(t, s, "schema")
	assert.Contains(t, out.String(), `"swamp.mesg"`)

	out.Reset()
	exec(t, s, "help")
	assert.Contains(t, out.String(), "create")
	assert.Contains(t, out.String(), "exit")
}

func TestShellErrors(t *testing.T) {
	s, _, _ := newShell(t)
	ctx := context.Background()

	_, err := s.Exec(ctx, "create /a/b")
	assert.ErrorIs(t, err, swamp.ErrNodeNotFound)

	for _, line := range []string{"create", "sub /a", "send /a", "link /a /b", "frobnicate"} {
		_, err = s.Exec(ctx, line)
		assert.ErrorIs(t, err, ErrUsage, line)
	}

	exec(t, s, "create /a", "listen /a")
	_, err = s.Exec(ctx, "listen /a")
	assert.Error(t, err)
	_, err = s.Exec(ctx, "unlisten /b")
	assert.Error(t, err)

	quit, err := s.Exec(ctx, "   ")
	assert.NoError(t, err)
	assert.False(t, quit)
}

func TestShellRun(t *testing.T) {
	s, x, out := newShell(t)
	in := strings.NewReader("create /a\nbogus\nexit\ncreate /never\n")
	require.NoError(t, s.Run(context.Background(), in))

	assert.Contains(t, out.String(), "created /a")
	assert.Contains(t, out.String(), "error: usage")
	_, err := x.GetNode(swamp.NewPath("/never"))
	assert.ErrorIs(t, err, swamp.ErrNodeNotFound)

	out.Reset()
	require.NoError(t, s.Run(context.Background(), strings.NewReader("")))
	assert.Contains(t, out.String(), "Exiting...")
}
