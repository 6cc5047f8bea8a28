package domain

import "regexp"

// Courier represents a delivery courier.
type Courier struct {
	ID        int64
	Name      string
	Phone     string
	Available bool
}

// rePhone is a regex to validate phone numbers
var rePhone = regexp.MustCompile(`^\+[0-9]{11}$`)

// ValidatePhone validates the phone number format
func ValidatePhone(s string) bool {
	return rePhone.MatchString(s)
}
