package llm

import (
	"context"
	"io"
)

// fragmentStream adapts a producer function to the Stream interface.
// The producer runs in its own goroutine but the channel is unbuffered,
// so no fragment is produced before the consumer asks for it.
type fragmentStream struct {
	cancel    context.CancelFunc
	fragments chan *Response
	errCh     chan error
	err       error
	done      bool
}

// newFragmentStream starts produce in a goroutine and returns a Stream
// over the fragments it emits. Recv returns io.EOF after the producer
// finishes cleanly, or the producer's error.
func newFragmentStream(ctx context.Context, produce func(ctx context.Context, fragments chan<- *Response) error) Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &fragmentStream{
		cancel:    cancel,
		fragments: make(chan *Response),
		errCh:     make(chan error, 1),
	}
	go func() {
		err := produce(ctx, s.fragments)
		close(s.fragments)
		s.errCh <- err
	}()
	return s
}

func (s *fragmentStream) Recv() (*Response, error) {
	if s.done {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	fragment, ok := <-s.fragments
	if !ok {
		s.done = true
		if err := <-s.errCh; err != nil {
			s.err = err
			return nil, err
		}
		return nil, io.EOF
	}
	return fragment, nil
}

func (s *fragmentStream) Close() error {
	s.cancel()
	return nil
}

// sendFragment delivers one fragment, giving up if the consumer
// abandoned the stream.
func sendFragment(ctx context.Context, fragments chan<- *Response, fragment *Response) bool {
	select {
	case fragments <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}
