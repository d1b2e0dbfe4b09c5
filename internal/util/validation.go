package util

import "github.com/google/uuid"

// IsValidUUID accepts the canonical lowercase hyphenated form only, which is
// also what is safe to use as a file name stem.
func IsValidUUID(s string) bool {
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.String() == s
}

func IsValidEnum[T ~string](value T, validValues []T) bool {
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}
