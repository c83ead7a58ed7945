// Package resident runs long-lived background loops inside a resident process.
//
// Two loop kinds share one engine:
//   - Looper: wakes at each tick of a cron-like Schedule.
//   - Worker: runs immediately, then re-arms itself from the task's result
//     (tight polling while work is found, backoff when idle).
//
// Every loop observes a shared Signal. A task tells its loop what to do next by
// returning a LoopState; AllTerminate also cancels the Signal so every other
// loop sharing it stops within one poll interval. Each spawn returns a Handle
// that completes only after the loop's onStop callback has returned.
package resident
