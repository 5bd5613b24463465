package repository

import (
	"context"

	"github.com/user/validator-service/internal/entity"
)

// ResultRepository persists the per-probe audit trail.
type ResultRepository interface {
	// SaveAll stores the validation results of one scan session.
	SaveAll(ctx context.Context, results []entity.ValidationResult) error
}
