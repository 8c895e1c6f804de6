package controllers

import (
	"fmt"

	"github.com/yeremiapane/restaurant-orders/apperrors"
)

func errInvalidStatus(status string) error {
	return apperrors.NewValidation("status", fmt.Sprintf("unknown status %q", status))
}
