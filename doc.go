// Package wakerbench measures how quickly a foreign OS thread can wake a
// single-threaded cooperative scheduler, and resume the one task blocked on
// that wakeup.
//
// # Mechanisms
//
// Two wakeup paths are implemented, plus a baseline:
//   - [FdWaker]: a [NotificationChannel] (pipe or eventfd) whose read end is
//     registered with the scheduler for readability. The foreign thread
//     performs a raw write, taking no execution lock.
//   - [CallbackWaker]: the foreign thread acquires the [ExecutionLock], then
//     enqueues a callback directly onto the scheduler's ready queue.
//   - [ExecutorMechanism]: the scheduler's own thread-to-scheduler executor
//     bridge, for comparison.
//
// # Scheduler
//
// The scheduler is an injected capability set, see [Scheduler]. The
// production implementation is [LoopScheduler], backed by an epoll event loop.
// Tests substitute their own.
//
// # Measurement
//
// A [Harness] runs a discarded warmup pass then a measured pass per
// [Mechanism]. Each trial clears an [Event], records the start time, spawns a
// one-shot [Worker] thread that signals, suspends until the event is set, then
// records the end time. [Summarize] reduces the samples to [Stats].
//
// Waits are bounded by default, see [WithWaitTimeout]. A lost signal fails the
// run with [ErrWaitTimeout] rather than hanging the process.
//
// Only Linux is supported.
package wakerbench
