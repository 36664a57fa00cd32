package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLog_DisabledByDefault(t *testing.T) {
	Reset()
	require.NotPanics(t, func() {
		Info(CatBuild, "nobody listens")
	})
}

func TestLog_FormatsFields(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	Info(CatFetch, "cloned", "crate", "x", "dest", "/tmp/x")

	line := buf.String()
	require.Contains(t, line, "[INFO] [fetch] cloned")
	require.Contains(t, line, " crate=x")
	require.Contains(t, line, " dest=/tmp/x")
	require.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestLog_OddFieldCount(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	Warn(CatCache, "odd", "orphan")
	require.Contains(t, buf.String(), "orphan=<missing>")
}

func TestLog_MinLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	SetMinLevel(LevelWarn)
	Debug(CatBuild, "hidden")
	Info(CatBuild, "hidden too")
	Error(CatBuild, "shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestLog_SetEnabled(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	SetEnabled(false)
	Error(CatBuild, "muted")
	require.Empty(t, buf.String())

	SetEnabled(true)
	Error(CatBuild, "audible")
	require.Contains(t, buf.String(), "audible")
}

func TestLog_ErrorErr(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	ErrorErr(CatCompile, "cargo failed", errors.New("exit status 101"), "crate", "x")
	require.Contains(t, buf.String(), "error=exit status 101")

	buf.Reset()
	ErrorErr(CatCompile, "no error", nil)
	require.Contains(t, buf.String(), "error=<nil>")
}

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolt.log")
	cleanup, err := Init(path)
	require.NoError(t, err)
	t.Cleanup(Reset)

	Info(CatLedger, "opened")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[ledger] opened")
}

func TestLevel_String(t *testing.T) {
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Equal(t, "ERROR", LevelError.String())
	require.Equal(t, "UNKNOWN", Level(42).String())
}
