// Package services implements HTTP clients for the study API.
//
// # Transport
//
// [APIService] owns the base URL and the HTTP client and performs JSON requests. [NewHTTPClient] builds a
// client that attaches a bearer token through an [oauth2.StaticTokenSource] and enforces a request timeout.
//
// # Study Time
//
// [StudyTimeService] calls the idempotent sync endpoint and the day/week summary endpoint.
// The client always sends cumulative totals; the server applies only their growth per client session.
//
// # Progress Records
//
// [ProgressService] lists, creates and updates study progress records used by the timer's record action.
//
// # Error Handling
//
// Non-2xx responses are mapped to sentinel errors from the shared package:
//   - [shared.ErrUnauthorized] : 401/403, missing or wrong API token
//   - [shared.ErrRecordNotFound] : 404
//   - [shared.ErrServiceUnavailable] : 5xx
//   - [shared.ErrAPIRequest] : any other failure, including 4xx validation errors
//   - [shared.ErrTimeout] : the request context or client deadline expired
package services
