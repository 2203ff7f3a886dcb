package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdamHev/Object-Detection-Bakery/internal/app/relay"
	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
)

const (
	msgInvalidDetection = "Invalid detection payload format."
	msgDetectionSaved   = "Detection saved and event sent."
	msgNoDetection      = "No detection data available yet."
	msgInvalidConfirm   = "Missing fields in confirmation."
	msgConfirmSaved     = "Confirmation saved."
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func readBody(c *gin.Context, limit int64) ([]byte, error) {
	body := c.Request.Body
	if limit > 0 {
		body = http.MaxBytesReader(c.Writer, body, limit)
	}
	return io.ReadAll(body)
}

// rejectBody answers a body that could not be read or failed validation.
func rejectBody(c *gin.Context, msg string, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: msg, Detail: err.Error()})
		return
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Reason: verr.Reason, Field: verr.Field, Detail: verr.Message})
		return
	}
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Detail: err.Error()})
}

func HandleIngest(svc *relay.Service, maxBody int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := readBody(c, maxBody)
		if err != nil {
			rejectBody(c, msgInvalidDetection, err)
			return
		}
		if _, err := svc.Ingest(raw); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				rejectBody(c, msgInvalidDetection, err)
				return
			}
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to publish detection.", Detail: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msgDetectionSaved})
	}
}

func HandleCurrent(svc *relay.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.Current()
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: msgNoDetection})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func HandleConfirm(svc *relay.Service, maxBody int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := readBody(c, maxBody)
		if err != nil {
			rejectBody(c, msgInvalidConfirm, err)
			return
		}
		if _, err := svc.Confirm(c.Request.Context(), raw); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				rejectBody(c, msgInvalidConfirm, err)
				return
			}
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to save confirmation.", Detail: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msgConfirmSaved})
	}
}

func HandleConfirmations(svc *relay.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Confirmations())
	}
}
