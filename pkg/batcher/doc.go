// Package batcher implements an auto-batcher: many concurrent callers add
// single items and receive futures, while the batcher services them with one
// backend round-trip per batch.
//
// A batch moves through Idle → Accumulating → Flushing → Idle. The first item
// arms a linger timer; the batch is cut when the timer fires or when it
// reaches the configured size, whichever happens first. The number of batches
// flushed concurrently is bounded (one by default), so callers adding items
// while a flush is running end up in the next batch.
//
//	b := batcher.New(func(ctx context.Context, bodies []string) ([]bool, error) {
//	    ok := post(ctx, strings.Join(bodies, "\n"))
//	    out := make([]bool, len(bodies))
//	    for i := range out {
//	        out[i] = ok
//	    }
//	    return out, nil
//	}, batcher.WithSize(500))
//
//	ok, err := b.Add(body).Await()
package batcher
