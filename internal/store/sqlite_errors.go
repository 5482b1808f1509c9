package store

import "strings"

// isBusyError reports whether the error is a SQLITE_BUSY from a concurrent
// connection. These warrant a retry.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// isUniqueViolation reports whether the error is a UNIQUE constraint
// failure. The events (session_id, offset) index turns lost offset races
// into this error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
