package feed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateFirst(t *testing.T) {
	u := Update{Values: []Observation{
		{Path: PathSpeedOverGround, Value: 3.1},
		{Path: PathAltitude, Value: 12.0},
	}}
	obs, ok := u.First()
	require.True(t, ok)
	assert.Equal(t, PathSpeedOverGround, obs.Path)

	_, ok = Update{}.First()
	assert.False(t, ok)
}

func TestPositionValue(t *testing.T) {
	p, err := PositionValue(Position{Latitude: 59.3, Longitude: 18.1})
	require.NoError(t, err)
	assert.Equal(t, 59.3, p.Latitude)

	p, err = PositionValue(map[string]any{"latitude": 48.85, "longitude": 2.35})
	require.NoError(t, err)
	assert.Equal(t, 48.85, p.Latitude)
	assert.Equal(t, 2.35, p.Longitude)

	_, err = PositionValue(map[string]any{"latitude": "north"})
	assert.Error(t, err)

	_, err = PositionValue("not a position")
	assert.Error(t, err)
}

func TestNumericValue(t *testing.T) {
	f, err := NumericValue(2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	f, err = NumericValue(7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, f)

	_, err = NumericValue("fast")
	assert.Error(t, err)
}

func TestJSONReaderDecodesLines(t *testing.T) {
	input := strings.Join([]string{
		`{"source":"gps.0","timestamp":"2026-03-01T12:00:00Z","values":[{"path":"navigation.speedOverGround","value":2.6}]}`,
		`not json`,
		`{"source":"gps.0","values":[{"path":"navigation.position","value":{"latitude":59.3,"longitude":18.1}}]}`,
	}, "\n")

	r := NewJSONReader(context.Background(), strings.NewReader(input), zerolog.Nop())

	var got []Update
	for u := range r.Updates() {
		got = append(got, u)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "gps.0", got[0].Source)
	obs, ok := got[0].First()
	require.True(t, ok)
	assert.Equal(t, PathSpeedOverGround, obs.Path)

	obs, ok = got[1].First()
	require.True(t, ok)
	pos, err := PositionValue(obs.Value)
	require.NoError(t, err)
	assert.Equal(t, 18.1, pos.Longitude)
}

func TestJSONReaderRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := newBlockedPipe()
	defer pw.close()

	r := NewJSONReader(ctx, pr, zerolog.Nop())
	select {
	case _, open := <-r.Updates():
		_ = open
	case <-time.After(time.Second):
		// Reader is blocked on input, which is fine; cancellation applies to
		// channel sends, not the blocking read.
	}
}

// newBlockedPipe returns a reader that produces one update then blocks.
type blockedReader struct {
	data []byte
	done chan struct{}
}

func newBlockedPipe() (*blockedReader, *blockedReader) {
	b := &blockedReader{
		data: []byte(`{"source":"gps.0","values":[{"path":"navigation.speedOverGround","value":1}]}` + "\n"),
		done: make(chan struct{}),
	}
	return b, b
}

func (b *blockedReader) Read(p []byte) (int, error) {
	if len(b.data) > 0 {
		n := copy(p, b.data)
		b.data = b.data[n:]
		return n, nil
	}
	<-b.done
	return 0, context.Canceled
}

func (b *blockedReader) close() { close(b.done) }
