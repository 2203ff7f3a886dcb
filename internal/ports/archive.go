package ports

import (
	"context"

	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
)

// Archiver mirrors accepted confirmations to an external system. It is write-only.
type Archiver interface {
	Archive(ctx context.Context, rec domain.ConfirmationRecord) error
	Name() string
}
