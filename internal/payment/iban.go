package payment

import "regexp"

// Georgian IBAN: "GE", two check digits, two-letter bank code, sixteen
// digit account number. 22 characters total.
var georgianIBAN = regexp.MustCompile(`^GE\d{2}[A-Z]{2}\d{16}$`)

// ValidIBAN reports whether s is a well-formed Georgian IBAN.
func ValidIBAN(s string) bool {
	return georgianIBAN.MatchString(s)
}
