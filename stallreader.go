package restclient

import (
	"context"
	"io"
	"sync"
	"time"
)

const defaultStallThreshold = 150 * 1024

// stallDetectReader wraps a response body and fails with ErrResponseStalled
// when fewer than stallThreshold bytes are read in stallTimeout.
type stallDetectReader struct {
	reader         io.Reader
	ctx            context.Context
	stallTimeout   time.Duration
	stallThreshold int64
	lastProgress   time.Time
	bytesInPeriod  int64
	closed         chan struct{}
	closeOnce      sync.Once
}

func newStallDetectReader(ctx context.Context, r io.Reader, timeout time.Duration, threshold int64) *stallDetectReader {
	if threshold <= 0 {
		threshold = defaultStallThreshold
	}
	return &stallDetectReader{
		reader:         r,
		ctx:            ctx,
		stallTimeout:   timeout,
		stallThreshold: threshold,
		lastProgress:   time.Now(),
		closed:         make(chan struct{}),
	}
}

func (sr *stallDetectReader) Read(p []byte) (n int, err error) {
	timer := time.NewTimer(sr.stallTimeout)
	defer timer.Stop()

	type result struct {
		n   int
		err error
	}

	readCh := make(chan result, 1)

	go func() {
		n, err := sr.reader.Read(p)
		readCh <- result{n, err}
	}()

	select {
	case <-sr.closed:
		return 0, io.ErrClosedPipe
	case <-sr.ctx.Done():
		return 0, sr.ctx.Err()
	case <-timer.C:
		if sr.bytesInPeriod < sr.stallThreshold {
			return 0, ErrResponseStalled
		}
		sr.bytesInPeriod = 0
		sr.lastProgress = time.Now()
		res := <-readCh
		sr.bytesInPeriod += int64(res.n)
		return res.n, res.err
	case res := <-readCh:
		sr.bytesInPeriod += int64(res.n)

		if time.Since(sr.lastProgress) > sr.stallTimeout {
			if sr.bytesInPeriod < sr.stallThreshold && res.err == nil {
				return res.n, ErrResponseStalled
			}
			sr.bytesInPeriod = 0
			sr.lastProgress = time.Now()
		}

		return res.n, res.err
	}
}

func (sr *stallDetectReader) Close() error {
	sr.closeOnce.Do(func() {
		close(sr.closed)
	})

	if closer, ok := sr.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
