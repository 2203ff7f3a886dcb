package ports

import "github.com/AdamHev/Object-Detection-Bakery/internal/domain"

type ConfirmationLog interface {
	Append(rec domain.ConfirmationRecord) error
	List() []domain.ConfirmationRecord
	Len() int
}
