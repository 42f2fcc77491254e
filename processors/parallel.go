package processors

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"

	"videoRecipe/core"
)

// DefaultLabelWorkers bounds concurrent frame labeling calls.
const DefaultLabelWorkers = 4

// labelWorkers reads LABEL_WORKERS, falling back to the default.
func labelWorkers() int {
	if v := os.Getenv("LABEL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultLabelWorkers
}

// LabelFrames runs the labeler over every frame with a bounded worker pool and
// returns extracted signals in frame order. A frame whose labeling fails is
// skipped and its error reported in the second return value.
func LabelFrames(ctx context.Context, labeler FrameLabeler, extractor *FrameSignalExtractor, frames []core.Frame) ([]core.FrameSignal, []error) {
	type result struct {
		idx    int
		signal core.FrameSignal
		err    error
	}

	workers := labelWorkers()
	jobs := make(chan int)
	results := make(chan result, len(frames))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				frame := frames[idx]
				labels, err := labeler.Label(ctx, frame.Path)
				if err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				results <- result{
					idx:    idx,
					signal: extractor.Extract(frame.FrameNumber, frame.TimestampSec, labels),
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range frames {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*core.FrameSignal, len(frames))
	var errs []error
	for res := range results {
		if res.err != nil {
			log.Printf("[labeler] frame %d failed: %v", frames[res.idx].FrameNumber, res.err)
			errs = append(errs, res.err)
			continue
		}
		sig := res.signal
		ordered[res.idx] = &sig
	}

	signals := make([]core.FrameSignal, 0, len(frames))
	for _, sig := range ordered {
		if sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals, errs
}
