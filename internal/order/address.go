package order

import (
	"strings"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
)

func (a Address) normalized() Address {
	return Address{
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

// Validate checks the required fields. State and Line2 are optional.
func (a Address) Validate() error {
	var missing []string
	if a.Line1 == "" {
		missing = append(missing, "address_line_1")
	}
	if a.City == "" {
		missing = append(missing, "city")
	}
	if a.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if a.Country == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return apperr.Validation("missing " + strings.Join(missing, ", "))
	}
	return nil
}
