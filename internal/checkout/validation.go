package checkout

import (
	"strings"

	"github.com/attos/attos-backend/pkg/enums"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
)

const maxAddressLength = 500

// normalizeAddress trims the delivery address and enforces its bounds.
func normalizeAddress(value string) (string, error) {
	address := strings.Join(strings.Fields(value), " ")
	if address == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if len(address) > maxAddressLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "delivery address is too long").
			WithDetails(map[string]any{"maxLength": maxAddressLength})
	}
	return address, nil
}

// parsePaymentMethod defaults to cash on delivery when nothing was chosen.
func parsePaymentMethod(value string) (enums.PaymentMethod, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return enums.PaymentMethodCOD, nil
	}
	method, err := enums.ParsePaymentMethod(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetails(map[string]any{"allowed": []string{"cod", "upi", "card"}})
	}
	return method, nil
}
