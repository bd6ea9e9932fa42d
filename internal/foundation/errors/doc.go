// Package errors provides the classified error primitives used across docsync.
//
// Every failure that crosses a package boundary is a ClassifiedError carrying a
// category (what went wrong), a severity (how much of the session it affects) and a
// retry strategy. The coordinator, the HTTP server and the CLI all route on the
// category rather than on message text.
//
// Example usage:
//
//	err := errors.ValidationError("proposed content too large").
//		WithContext("section", title).
//		WithContext("ratio", ratio).
//		Build()
package errors
