package errors

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) (*bytes.Buffer, *int) {
	t.Helper()
	var buf bytes.Buffer
	code := -1
	oldOut, oldExit := stderr, exit
	stderr = &buf
	exit = func(c int) { code = c }
	t.Cleanup(func() { stderr, exit = oldOut, oldExit })
	return &buf, &code
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, ""},
		{"simple error", errors.New("boom"), "Error: boom"},
		{"joined error", errors.Join(errors.New("outer"), errors.New("inner")), "Error: outer\ninner"},
		{"hint", WithHint(errors.New("no cache"), "run 'nova init'"), "Error: no cache\nHint: run 'nova init'"},
		{"wrapped hint", fmt.Errorf("open: %w", WithHint(errors.New("no cache"), "run 'nova init'")), "Error: open: no cache\nHint: run 'nova init'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.err))
		})
	}
}

func TestWithHintKeepsChain(t *testing.T) {
	base := errors.New("base")
	err := WithHint(base, "try again")
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "try again", Hint(err))
	assert.Nil(t, WithHint(nil, "unused"))
	assert.Empty(t, Hint(base))
}

func TestFatal(t *testing.T) {
	out, code := capture(t)

	Fatal(nil)
	assert.Equal(t, -1, *code)
	assert.Empty(t, out.String())

	Fatal(errors.New("boom"))
	assert.Equal(t, 1, *code)
	assert.Equal(t, "Error: boom\n", out.String())
}

func TestWarnf(t *testing.T) {
	out, code := capture(t)
	Warnf("remote %s unavailable", "dir:/tmp/x")
	assert.Equal(t, "Warning: remote dir:/tmp/x unavailable\n", out.String())
	assert.Equal(t, -1, *code)
}
