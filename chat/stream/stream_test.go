package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunkReader hands out one predefined chunk per Read call, then EOF,
// simulating arbitrary network framing.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data != "" {
		n := copy(p, r.data)
		r.data = r.data[n:]
		return n, nil
	}
	return 0, r.err
}

func TestParserFeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		chunks []string
		want   []Event
	}{
		{
			name:   "single complete record",
			chunks: []string{"data: {\"content\": \"Hello\"}\n"},
			want:   []Event{Delta{Content: "Hello"}},
		},
		{
			name: "record split across three chunks",
			chunks: []string{
				"data: {\"cont",
				"ent\": \"Hel",
				"lo\"}\ndata: {\"done\": true, \"chat_id\": \"abc\"}\n",
			},
			want: []Event{Delta{Content: "Hello"}, Done{SessionID: "abc"}},
		},
		{
			name: "malformed line between valid records",
			chunks: []string{
				"data: {\"content\": \"a\"}\n",
				"data: {not json\n",
				": keep-alive\n",
				"\n",
				"data: {\"content\": \"b\"}\n",
			},
			want: []Event{Delta{Content: "a"}, Delta{Content: "b"}},
		},
		{
			name: "content after done is swallowed",
			chunks: []string{
				"data: {\"done\": true}\ndata: {\"content\": \"late\"}\n",
			},
			want: []Event{Done{}},
		},
		{
			name:   "crlf line endings",
			chunks: []string{"data: {\"content\": \"x\"}\r\n"},
			want:   []Event{Delta{Content: "x"}},
		},
		{
			name:   "empty content record produces nothing",
			chunks: []string{"data: {\"content\": \"\"}\n"},
			want:   nil,
		},
		{
			name:   "error record is dropped",
			chunks: []string{"data: {\"error\": \"model unavailable\"}\ndata: {\"content\": \"ok\"}\n"},
			want:   []Event{Delta{Content: "ok"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewParser()
			var got []Event
			for _, chunk := range tt.chunks {
				got = append(got, p.Feed([]byte(chunk))...)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParserCloseSynthesizesDone(t *testing.T) {
	t.Parallel()

	p := NewParser()
	p.Feed([]byte("data: {\"content\": \"partial\"}\ndata: {\"cont"))
	require.False(t, p.Done())

	got := p.Close()
	require.Equal(t, []Event{Done{}}, got)
	require.True(t, p.Done())

	// Close after terminal is a no-op, as is further feeding.
	require.Nil(t, p.Close())
	require.Nil(t, p.Feed([]byte("data: {\"content\": \"more\"}\n")))
}

func TestParserCloseAfterDoneRecord(t *testing.T) {
	t.Parallel()

	p := NewParser()
	events := p.Feed([]byte("data: {\"done\": true, \"chat_id\": \"c1\"}\n"))
	require.Equal(t, []Event{Done{SessionID: "c1"}}, events)
	require.Nil(t, p.Close())
}

func TestConsumeOrderedDeltas(t *testing.T) {
	t.Parallel()

	body := &chunkReader{chunks: []string{
		"data: {\"content\": \"He\"}\n",
		"data: {\"content\": \"llo\"}\ndata: {\"done\": true, \"chat_id\": \"c9\"}\n",
	}}

	var sb strings.Builder
	var doneID string
	doneCalls := 0
	err := Consume(context.Background(), body, func(content string) {
		sb.WriteString(content)
	}, func(sessionID string) {
		doneID = sessionID
		doneCalls++
	})
	require.NoError(t, err)
	require.Equal(t, "Hello", sb.String())
	require.Equal(t, "c9", doneID)
	require.Equal(t, 1, doneCalls)
}

func TestConsumeImplicitDoneAtEOF(t *testing.T) {
	t.Parallel()

	body := strings.NewReader("data: {\"content\": \"truncated\"}\n")

	var deltas []string
	var doneID string
	doneCalls := 0
	err := Consume(context.Background(), body, func(content string) {
		deltas = append(deltas, content)
	}, func(sessionID string) {
		doneID = sessionID
		doneCalls++
	})
	require.NoError(t, err)
	require.Equal(t, []string{"truncated"}, deltas)
	require.Empty(t, doneID)
	require.Equal(t, 1, doneCalls)
}

func TestConsumeReadErrorSkipsDone(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("connection reset")
	body := &failingReader{data: "data: {\"content\": \"a\"}\n", err: wantErr}

	var deltas []string
	err := Consume(context.Background(), body, func(content string) {
		deltas = append(deltas, content)
	}, func(string) {
		t.Fatal("done callback must not fire on a read failure")
	})
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, []string{"a"}, deltas)
}

func TestConsumeStopsAtDoneRecord(t *testing.T) {
	t.Parallel()

	body := &chunkReader{chunks: []string{
		"data: {\"done\": true}\n",
		"data: {\"content\": \"never read\"}\n",
	}}

	err := Consume(context.Background(), body, func(content string) {
		t.Fatalf("unexpected delta %q after done", content)
	}, func(string) {})
	require.NoError(t, err)
	// The trailing chunk was never consumed.
	require.Len(t, body.chunks, 1)
}

func TestConsumeCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Consume(ctx, strings.NewReader("data: {\"done\": true}\n"),
		func(string) {}, func(string) {})
	require.ErrorIs(t, err, context.Canceled)
}
