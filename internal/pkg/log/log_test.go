package log

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	color.NoColor = true
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetDebug(false)
	})
	return buf
}

func TestLog_Levels(t *testing.T) {
	buf := captureOutput(t)

	Info("created post %s", "p1")
	Warn("retrying %d", 2)
	Error("boom")

	out := buf.String()
	assert.Contains(t, out, "[INFO] created post p1")
	assert.Contains(t, out, "[WARN] retrying 2")
	assert.Contains(t, out, "[ERROR] boom")
}

func TestLog_RequestID(t *testing.T) {
	buf := captureOutput(t)

	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))

	ErrorWithContext(ctx, "store failed")
	assert.Contains(t, buf.String(), "[req_id=req-42] store failed")
}

func TestLog_DebugIsGated(t *testing.T) {
	buf := captureOutput(t)

	Debug("hidden")
	assert.Empty(t, buf.String())

	SetDebug(true)
	Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
