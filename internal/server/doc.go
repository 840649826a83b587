// Package server provides the reference study API: HTTP routing, middleware, and handlers for
// idempotent study-time sync and progress records.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// Middleware is captured when a route is registered, so routes added before [BasicRouter.Use] skip the newer
// middleware. [New] relies on this to keep /health outside bearer auth.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # Study Time
//
// [StudyTimeHandler] serves POST /api/study-time/sync and GET /api/study-time/summary.
// Clients send the cumulative total of a session; the store keeps the largest total seen per
// (user, day, session) and credits only the growth, so repeated and reordered syncs never double count.
//
// # Progress Records
//
// [ProgressHandler] serves CRUD under /api/progress, per-subject aggregates under /api/summary and
// subject renames under PUT /api/subjects/update-name.
//
// # Errors
//
// Every error response is JSON of the form {"detail": "..."}. Validation failures map to 422,
// missing records to 404, and missing subject or session IDs on sync to 400.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
