package ports

import "github.com/AdamHev/Object-Detection-Bakery/internal/domain"

// StateStore holds the single latest detection. Set never broadcasts.
type StateStore interface {
	Set(rec domain.DetectionRecord)
	Get() (domain.DetectionRecord, bool)
}
