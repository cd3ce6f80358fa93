package model

import "strings"

// TempIDPrefix marks locally generated placeholder identifiers for records
// not yet confirmed by the backend. A confirmed record always carries a
// server-assigned id instead.
const TempIDPrefix = "mock-"

// IsTempID reports whether id is a provisional local identifier.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
