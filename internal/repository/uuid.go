package repository

import "github.com/google/uuid"

// isUUID reports whether a client-supplied id can match a UUID key
// column. Querying with a malformed id would fail as a postgres cast
// error instead of a clean no-rows miss, so callers treat a non-UUID
// the same as an unknown id.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
