// Package async provides generic futures used by the batching components of the
// notification hub.
//
// A Future represents the eventual result of an operation. It is obtained either
// from Async, which runs a function in its own goroutine, or from NewPromise,
// which returns a pending future plus the function that completes it. Batchers
// use promises: each caller receives a future when enqueueing an item and the
// batch flush resolves all of them at once.
//
//	fut, resolve := async.NewPromise[bool]()
//	go func() { resolve(true, nil) }()
//	ok, err := fut.Await()
//
// AwaitAll gathers a scatter of futures without stopping at the first error,
// which is what the fan-out stages need: one failed item must not hide the
// others.
//
// A Future completes exactly once; later resolve calls are ignored.
package async
