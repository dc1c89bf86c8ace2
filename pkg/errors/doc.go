// Package errors provides structured error handling with error codes for coach-admin.
//
// Errors carry a typed code, a human-readable message, optional details, and an
// optional wrapped cause. Codes map to HTTP status codes via
// MapErrorCodeToHTTPStatus, so handlers never hardcode statuses.
//
// Creating errors:
//
//	err := errors.New(errors.ErrCodeForbidden, "admin role required")
//	err := errors.Newf(errors.ErrCodeUserNotFound, "user not found: %s", id)
//	err := errors.Wrap(dbErr, errors.ErrCodeAuditWriteFailed, "audit insert failed")
//
// Inspecting errors:
//
//	if errors.IsCode(err, errors.ErrCodeTokenConsumed) {
//		// token replay
//	}
//	code := errors.GetCode(err) // falls back to ErrCodeInternal
//
// The taxonomy is intentionally small: the impersonation core distinguishes
// unauthenticated callers, forbidden grants, missing users, invalid/expired/
// consumed tokens, and fatal audit-write failures. Anything else is internal.
package errors
