package validation

import (
	"fmt"
	"math"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
)

// ValidateCoordinates checks a WGS84 latitude/longitude pair
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return apperrors.NewValidationError("coordinates must be numbers", nil)
	}
	if lat < -90 || lat > 90 {
		return apperrors.NewValidationError(fmt.Sprintf("latitude %v out of range [-90,90]", lat), nil)
	}
	if lng < -180 || lng > 180 {
		return apperrors.NewValidationError(fmt.Sprintf("longitude %v out of range [-180,180]", lng), nil)
	}
	return nil
}
