// Package tasks drives the study timer and its server sync with real-time state reporting.
//
// # Core Operations
//
// [TimerController] owns the timer state and the sync bookkeeping and serializes every mutation behind one lock:
//
//  1. Commands : [TimerController.Start], [TimerController.Stop], [TimerController.Reset], mode and subject
//     selection, and the manual and pomodoro setters. Each command recomputes the timer from its anchor,
//     applies the transition, persists both states and notifies subscribers.
//
//  2. Sync : [TimerController.SyncNow] sends the cumulative total of the current run to the study API.
//     The server credits only the growth since the last total it saw for the session, so retries and
//     duplicate sends are harmless.
//     - Runs periodically while a subject is being timed
//     - Runs when a running timer stops, when the view is hidden, and best-effort on unload
//     - Failures are logged and leave every state untouched
//
//  3. Records : [TimerController.SaveRecord] folds the session into today's progress record for the subject.
//
// # Scheduling
//
// The tick and sync loops are goroutines driven by [time.Ticker]. They are armed only while a stopwatch or
// pomodoro is running (the sync loop additionally needs a subject) and never more than one of each exists.
// [TimerController.Close] stops both, cancels in-flight requests and waits for them to return.
//
// # State Reporting
//
// [TimerController.Subscribe] returns a channel of [Event] values carrying a [Snapshot]. Events are sent
// with select and default so a slow consumer never blocks the controller.
//
// # Progress Export
//
// [ExportSubjects] fetches the progress records of several subjects with a rate-limited worker pool and
// writes one file per subject plus a manifest.
package tasks
