// Package middleware adapts goIdentity.Engine to net/http.
//
// # Guards
//
//   - [RequireSession] authenticates either a raw session id in the
//     x-user-authorization header or an access JWT in Authorization: Bearer,
//     and stores the session in the request context.
//   - [ClientInfo] copies the remote address and User-Agent into the context
//     so audit events carry them.
//
// # Status mapping
//
// The Status* functions translate engine outcomes into HTTP status codes for
// handlers that return them to clients.
//
// # What this package must NOT do
//
//   - Parse or sign JWTs directly (delegates to Engine).
//   - Access Redis or the repository.
//   - Make decisions beyond pass/reject from the engine.
package middleware
