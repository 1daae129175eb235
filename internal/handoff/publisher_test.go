package handoff

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"destination_assistant/internal/config"
	"destination_assistant/pkg"
)

func payload() pkg.HandoffPayload {
	return pkg.HandoffPayload{Destination: "Lisbon", Preferences: []string{"beach", "food"}, ReadyForBooking: true}
}

func TestWriterPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewWriterPublisher(&buf)

	require.NoError(t, p.Publish(context.Background(), "s1", payload()))
	require.NoError(t, p.Publish(context.Background(), "s2", payload()))
	require.NoError(t, p.Close())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var rec Record
	require.NoError(t, sonic.Unmarshal(lines[0], &rec))
	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, payload(), rec.Handoff)
	assert.False(t, rec.PublishedAt.IsZero())
}

func TestFilePublisherAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "handoffs.jsonl")

	for _, id := range []string{"a", "b"} {
		p, err := New(context.Background(), config.HandoffConfig{Sink: "file", Path: path})
		require.NoError(t, err)
		require.NoError(t, p.Publish(context.Background(), id, payload()))
		require.NoError(t, p.Close())
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec Record
		require.NoError(t, sonic.Unmarshal(sc.Bytes(), &rec))
		ids = append(ids, rec.SessionID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestNew_UnknownSink(t *testing.T) {
	_, err := New(context.Background(), config.HandoffConfig{Sink: "kafka"})
	assert.Error(t, err)
}

func TestPostgresPublisher(t *testing.T) {
	dsn := os.Getenv("HANDOFF_TEST_DSN")
	if dsn == "" {
		t.Skip("HANDOFF_TEST_DSN not set")
	}
	ctx := context.Background()

	p, err := NewPostgresPublisher(ctx, dsn)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Publish(ctx, "pg-test", payload()))

	var dest string
	var prefs []string
	err = p.db.QueryRow(ctx,
		"SELECT destination, preferences FROM destination_handoffs WHERE session_id = $1 ORDER BY id DESC LIMIT 1",
		"pg-test").Scan(&dest, &prefs)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", dest)
	assert.Equal(t, []string{"beach", "food"}, prefs)

	_, err = p.db.Exec(ctx, "DELETE FROM destination_handoffs WHERE session_id = $1", "pg-test")
	require.NoError(t, err)
}
