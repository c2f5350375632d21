package orders

import (
	"errors"
	"fmt"
)

// Error classes. Handlers map these to HTTP status codes; anything not
// wrapping one of them is a store failure.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrOrderNotFound         = fmt.Errorf("%w: order row", ErrNotFound)
	ErrProductNotFound       = fmt.Errorf("%w: product", ErrNotFound)
	ErrConfirmedItemNotFound = fmt.Errorf("%w: confirmed item", ErrNotFound)
	ErrDeployedItemNotFound  = fmt.Errorf("%w: deployed item", ErrNotFound)

	ErrAlreadyFullyConfirmed = fmt.Errorf("%w: order row already fully confirmed", ErrConflict)
	ErrAlreadyDeployed       = fmt.Errorf("%w: item already deployed", ErrConflict)
	ErrDuplicateSerial       = fmt.Errorf("%w: serial number already recorded", ErrConflict)
	ErrProductInUse          = fmt.Errorf("%w: product is referenced by orders", ErrConflict)
	ErrOrderHasConfirmations = fmt.Errorf("%w: order row has confirmed units", ErrConflict)

	ErrMissingIdentifier = fmt.Errorf("%w: serial number or unit count required", ErrValidation)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
