// Package blog provides the domain core of a multi-user blogging platform:
// accounts with bcrypt credentials, signed purpose-bound tokens, bitmask
// role permissions, a self-referential follow graph, sanitized post and
// comment bodies, and the command handlers behind the account flows.
//
// Accounts:
//   - Users are created through RegisterUserHandler, which assigns a role,
//     stores the reflexive follow edge and emails a confirmation token in
//     one unit of work. Unconfirmed accounts may authenticate but the HTTP
//     layers gate them.
//   - Password reset and email change are token driven. TokenService signs
//     claim maps with the process secret; every failure collapses into
//     ErrInvalidToken so callers cannot learn why a token was refused.
//
// Authorization:
//   - Role permissions are a bitmask. Identity is a closed set of variants
//     (anonymous or an authenticated user) that answers Can uniformly, so
//     handlers never special case missing users.
//
// Activity sinks:
//   - ActivitySink receives best-effort audit events from the command
//     handlers (registration, confirmation, password and email changes).
//     Sink errors are logged and never surface to callers.
package blog
