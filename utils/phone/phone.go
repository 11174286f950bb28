package phone

import (
	"net/http"

	"github.com/nyaruka/phonenumbers"

	"connect3-server/utils/errors"
)

// DefaultRegion is assumed for numbers entered without a country code.
const DefaultRegion = "US"

// Normalize parses a raw phone number and returns its canonical E.164 form,
// which is the identity key for users across the whole system. Two identities
// are equal iff their normalized forms are equal.
func Normalize(raw string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", errors.NewAPIError("INVALID_ARGUMENT", "Invalid phone number", http.StatusBadRequest, err.Error())
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", errors.NewAPIError("INVALID_ARGUMENT", "Invalid phone number", http.StatusBadRequest, raw)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
