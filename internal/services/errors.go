package services

import (
	"fmt"

	"github.com/isdelr/cubeforge-be/internal/models"
)

// storageErr wraps a driver error so callers can match models.ErrStorage
// without seeing driver types.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrStorage, op, err)
}
