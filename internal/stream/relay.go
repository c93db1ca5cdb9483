package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vieneu/tts-server/internal/services"
)

// Relay timing. A consumer that sees no data for IdleTimeout treats the
// stream as ended rather than hanging; the feeder polls in short rounds so
// it can observe cancellation between waits.
const (
	IdleTimeout = 30 * time.Second
	feedPoll    = 2 * time.Second
	readBufSize = 4096
)

// TranscoderHolder parks a running transcoder handle where the cancellation
// path can find it. Implemented by the job record.
type TranscoderHolder interface {
	AttachTranscoder(t *services.Transcoder)
	DetachTranscoder()
}

// ServeRaw copies PCM segments from the channel to w as-is until the end
// marker, the idle window, or consumer disconnect. The consumer is expected
// to know the fixed sample format.
func ServeRaw(ctx context.Context, w io.Writer, ch *Channel) error {
	flusher, _ := w.(http.Flusher)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		seg, err := ch.Pop(IdleTimeout)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, ErrTimeout) {
			// Generous idle window elapsed with the stream still open;
			// end rather than hang the consumer.
			return nil
		}
		if len(seg) == 0 {
			continue
		}

		if _, err := w.Write(seg); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// ServeTranscoded pumps the channel through a transcoder subprocess to w.
// A feeder task moves PCM into the transcoder input and a reader task moves
// encoded output to the consumer; the pair shuts down together on the end
// marker, cancellation, or consumer disconnect, and the subprocess is torn
// down on every exit path.
func ServeTranscoded(ctx context.Context, w io.Writer, ch *Channel, t *services.Transcoder, holder TranscoderHolder) error {
	holder.AttachTranscoder(t)
	defer func() {
		t.Terminate()
		_ = t.Wait()
		holder.DetachTranscoder()
	}()

	flusher, _ := w.(http.Flusher)
	g, gctx := errgroup.WithContext(ctx)

	// Feeder: channel into transcoder stdin.
	g.Go(func() error {
		defer t.CloseInput()

		idle := time.Duration(0)
		for {
			if gctx.Err() != nil {
				return nil
			}

			seg, err := ch.Pop(feedPoll)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, ErrTimeout) {
				idle += feedPoll
				if idle >= IdleTimeout {
					return nil
				}
				continue
			}
			idle = 0
			if len(seg) == 0 {
				continue
			}

			if err := t.Feed(seg); err != nil {
				// Transcoder went away (cancel or teardown); stop quietly.
				log.Debug().Err(err).Msg("transcoder feed stopped")
				return nil
			}
		}
	})

	// Reader: transcoder stdout to the consumer.
	g.Go(func() error {
		buf := make([]byte, readBufSize)
		for {
			n, err := t.Output().Read(buf)
			if n > 0 {
				if _, werr := w.Write(buf[:n]); werr != nil {
					return werr
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
			if err != nil {
				// Output exhausted or process terminated.
				return nil
			}
		}
	})

	return g.Wait()
}
