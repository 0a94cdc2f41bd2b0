// Package worker provides the bounded goroutine pool that runs backend reads
// for asynchronous resource loads.
//
//	pool, err := worker.NewPool(4, 64, logger)
//	pool.Submit(func() { ... })
//	defer pool.Shutdown()
package worker
