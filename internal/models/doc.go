// Package models defines the wire and persistence types shared by the studyx client and its reference server.
//
// The package contains two categories of types:
//
// 1. Study time sync: the idempotent sync protocol between a timer and the server aggregate
//   - [SyncRequest] : cumulative study time for one (day, subject, client session) lineage
//   - [SyncResponse] : the applied delta and the server's authoritative day/week totals
//   - [Summary] : day and week totals used to seed displays before a sync happens
//   - [StudySession] : server-side bookkeeping row for one sync lineage
//
// 2. Study progress records: per-subject/topic study hours committed by the timer's record action
//   - [ProgressRecord] : a persisted record
//   - [ProgressCreate] / [ProgressUpdate] : create and partial-update payloads
//
// Request payloads implement [Validator] so handlers and clients can reject bad input before any I/O.
package models
