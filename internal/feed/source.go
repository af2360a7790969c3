package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"
)

// Source delivers updates to the agent. Updates must stop arriving after the
// channel closes; the agent drains until then.
type Source interface {
	Updates() <-chan Update
}

// ChanSource is a trivial Source backed by a channel, used to feed the agent
// in-process.
type ChanSource chan Update

// Updates returns the underlying channel.
func (s ChanSource) Updates() <-chan Update { return s }

// JSONReader reads newline-delimited JSON updates from a reader, typically a
// pipe from the host's subscription stream. Malformed lines are logged and
// skipped.
type JSONReader struct {
	ch  chan Update
	log zerolog.Logger
}

// NewJSONReader constructs a JSONReader and starts decoding in a goroutine.
// The updates channel closes when the reader reaches EOF or ctx is cancelled.
func NewJSONReader(ctx context.Context, r io.Reader, logger zerolog.Logger) *JSONReader {
	j := &JSONReader{
		ch:  make(chan Update, 16),
		log: logger.With().Str("component", "feed").Logger(),
	}
	go j.run(ctx, r)
	return j
}

// Updates returns the decoded update stream.
func (j *JSONReader) Updates() <-chan Update { return j.ch }

func (j *JSONReader) run(ctx context.Context, r io.Reader) {
	defer close(j.ch)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var u Update
		if err := json.Unmarshal(line, &u); err != nil {
			j.log.Debug().Err(err).Msg("skipping malformed feed line")
			continue
		}
		select {
		case j.ch <- u:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		j.log.Error().Err(err).Msg("feed read failed")
	}
}
