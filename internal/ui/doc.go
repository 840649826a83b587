// Package ui implements an interactive study timer using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [TimerView] : The clock face, mode, subject and day/week totals
//  2. [SubjectView] : Pick the subject the time is credited to
//  3. [ConfirmView] : Confirm saving the session as a progress record
//
// The (view) [Model] drives a [Timer] (normally a [tasks.TimerController]) and renders the snapshots it
// publishes. Controller events flow through a subscription channel into the update loop, so ticks and
// background syncs repaint the screen without polling.
//
// Terminal focus reporting stands in for page visibility: losing focus flushes unsynced time and regaining
// it refreshes the totals.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
