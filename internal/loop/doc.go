// Package loop implements the single-threaded cooperative scheduler that the
// wakeup benchmarks run against.
//
// A [Loop] owns one goroutine, locked to an OS thread for the duration of
// [Loop.Run], which executes every ready callback and every I/O readiness
// callback. Foreign goroutines reach it through three doors:
//   - [Loop.Submit], the thread-safe "enqueue callback" operation
//   - [Loop.RegisterFD], readability notification via epoll
//   - [Executor], a single-worker bridge that runs a function off the loop
//     and delivers its completion back onto it
//
// An [Event] provides the set/clear/wait synchronization primitive a waiting
// task suspends on.
//
// When configured [WithExecutionLock], the loop holds that lock while it runs
// callbacks and releases it before sleeping in poll, so anything that
// acquires the same lock from another thread contends with scheduler work.
//
// Only Linux is supported. On other platforms [New] returns
// [errors.ErrUnsupported].
package loop
