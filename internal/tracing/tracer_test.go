package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/bolt/internal/paths"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.False(t, cfg.Enabled, "tracing should be disabled by default")
	require.Equal(t, "file", cfg.Exporter)
	require.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.Equal(t, "bolt", cfg.ServiceName)
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: false})
	require.NoError(t, err)
	require.False(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), "test-span")
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_FileExporter(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces", "traces.jsonl")

	provider, err := NewProvider(Config{
		Enabled:  true,
		Exporter: "file",
		FilePath: tracePath,
	})
	require.NoError(t, err)
	require.True(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), SpanBuild)
	span.SetAttributes(attribute.String(AttrCrateName, "x"))
	End(span, nil)

	// Shutdown flushes the batcher
	require.NoError(t, provider.Shutdown(context.Background()))

	f, err := os.Open(tracePath)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan(), "expected one span line")

	var rec SpanRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
	require.Equal(t, SpanBuild, rec.Name)
	require.Equal(t, "OK", rec.Status)
	require.Equal(t, "x", rec.Attributes[AttrCrateName])
}

func TestNewProvider_NoExporter(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: true, Exporter: "none"})
	require.NoError(t, err)
	require.True(t, provider.Enabled())
	require.NoError(t, provider.Shutdown(context.Background()))
}

func linuxEnv(home string) paths.Env {
	return paths.Env{
		GOOS: "linux",
		LookupEnv: func(key string) (string, bool) {
			if key == "HOME" && home != "" {
				return home, true
			}
			return "", false
		},
	}
}

func TestNewProvider_FileExporter_NoPathNoHome(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "file", Env: linuxEnv("")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "file_path required")
}

func TestNewProvider_FileExporter_DefaultPath(t *testing.T) {
	home := t.TempDir()
	provider, err := NewProvider(Config{Enabled: true, Exporter: "file", Env: linuxEnv(home)})
	require.NoError(t, err)

	_, span := provider.Tracer().Start(context.Background(), "default-path")
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))

	require.FileExists(t, filepath.Join(home, ".config", "bolt", "traces", "traces.jsonl"))
}

func TestNewProvider_FileExporter_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	provider, err := NewProvider(Config{
		Enabled:  true,
		Exporter: "file",
		FilePath: "~/bolt-traces/out.jsonl",
		Env:      linuxEnv(home),
	})
	require.NoError(t, err)
	require.NoError(t, provider.Shutdown(context.Background()))

	require.FileExists(t, filepath.Join(home, "bolt-traces", "out.jsonl"))
}

func TestConfig_ResolvedFilePath(t *testing.T) {
	got, err := Config{FilePath: "/var/tmp/t.jsonl", Env: linuxEnv("")}.ResolvedFilePath()
	require.NoError(t, err)
	require.Equal(t, "/var/tmp/t.jsonl", got)

	got, err = Config{Env: linuxEnv("/home/u")}.ResolvedFilePath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/home/u", ".config", "bolt", "traces", "traces.jsonl"), got)

	_, err = Config{FilePath: "~/t.jsonl", Env: linuxEnv("")}.ResolvedFilePath()
	require.Error(t, err)
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "zipkin"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported exporter type")
}

func TestEnd_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), SpanCompile)
	End(span, errors.New("cargo exploded"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "cargo exploded", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1, "RecordError adds an exception event")
}

func TestFileExporter_Shutdown(t *testing.T) {
	exporter, err := NewFileExporter(filepath.Join(t.TempDir(), "t.jsonl"))
	require.NoError(t, err)

	require.NoError(t, exporter.ExportSpans(context.Background(), nil))
	require.NoError(t, exporter.Shutdown(context.Background()))
	require.NoError(t, exporter.Shutdown(context.Background()), "second shutdown is a no-op")
}
