package audit

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSpanBridgeEmitsStartAndEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.jsonl")
	chain, err := Open(path, SignerFromBytes([]byte("secret")))
	require.NoError(t, err)

	bridge := NewSpanBridge(chain)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(bridge))
	tracer := tp.Tracer("orbit-test")

	_, span := tracer.Start(context.Background(), "sweep")
	span.End()

	require.NoError(t, tp.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	report, err := Validate(path, SignerFromBytes([]byte("secret")))
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Equal(t, 2, report.TotalEvents)
}
