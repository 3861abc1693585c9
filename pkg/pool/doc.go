// Package pool provides a generic bounded-concurrency task executor.
//
// A Pool admits at most MaxConcurrency task bodies at a time and queues
// the rest in submission order. Submit returns a Task handle immediately;
// the handle resolves to the task's value or error once it has run. A
// failing task never affects its siblings or the pool itself.
//
// Example usage:
//
//	p, err := pool.New[int]("chapters", 4)
//	if err != nil {
//		return err
//	}
//	task := p.Submit(ctx, func(ctx context.Context) (int, error) {
//		return fetchChapter(ctx, 12)
//	})
//	n, err := task.Wait()
//
// The pool:
//   - Admits queued tasks strictly in submission (FIFO) order
//   - Resolves tasks submitted with an already-cancelled context without
//     running their body
//   - Recovers task panics into the task's error
//   - Exposes running/queued gauges per pool name for Prometheus
package pool
