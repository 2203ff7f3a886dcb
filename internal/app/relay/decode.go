package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// decodeObject splits a JSON object body into its raw members.
func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, domain.NewValidationError("", domain.ReasonInvalidJSON, "body must be a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, domain.NewValidationError("", domain.ReasonInvalidJSON, "malformed JSON: %v", err)
	}
	return fields, nil
}

func present(fields map[string]json.RawMessage, name string) (json.RawMessage, error) {
	v, ok := fields[name]
	if !ok {
		return nil, domain.NewValidationError(name, domain.ReasonMissingField, "field is required")
	}
	return bytes.TrimSpace(v), nil
}

func isNumber(v json.RawMessage) bool {
	if len(v) == 0 {
		return false
	}
	c := v[0]
	return c == '-' || (c >= '0' && c <= '9')
}

func parseDetection(raw []byte) (domain.DetectionRecord, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return domain.DetectionRecord{}, err
	}

	tsRaw, err := present(fields, "timestamp")
	if err != nil {
		return domain.DetectionRecord{}, err
	}
	ts, err := domain.ParseTimestamp(tsRaw)
	if err != nil {
		return domain.DetectionRecord{}, domain.NewValidationError("timestamp", domain.ReasonInvalidType, "must be a string or number")
	}

	countRaw, err := present(fields, "object_count")
	if err != nil {
		return domain.DetectionRecord{}, err
	}
	count, err := parseCount(countRaw)
	if err != nil {
		return domain.DetectionRecord{}, err
	}

	labelsRaw, err := present(fields, "labels")
	if err != nil {
		return domain.DetectionRecord{}, err
	}
	labels, err := parseLabels(labelsRaw)
	if err != nil {
		return domain.DetectionRecord{}, err
	}

	return domain.DetectionRecord{Timestamp: ts, ObjectCount: count, Labels: labels}, nil
}

// parseCount accepts integral JSON numbers, including forms such as 3.0 or 1e2.
func parseCount(v json.RawMessage) (int64, error) {
	if !isNumber(v) {
		return 0, domain.NewValidationError("object_count", domain.ReasonInvalidType, "must be a number")
	}
	if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
		if n < 0 {
			return 0, domain.NewValidationError("object_count", domain.ReasonNegativeValue, "must not be negative, got %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		return 0, domain.NewValidationError("object_count", domain.ReasonInvalidType, "must be a number")
	}
	if f < 0 {
		return 0, domain.NewValidationError("object_count", domain.ReasonNegativeValue, "must not be negative, got %s", v)
	}
	if f != math.Trunc(f) {
		return 0, domain.NewValidationError("object_count", domain.ReasonNotInteger, "must be an integer, got %s", v)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f >= 1<<63 {
		return 0, domain.NewValidationError("object_count", domain.ReasonInvalidType, "out of range, got %s", v)
	}
	return int64(f), nil
}

func parseLabels(v json.RawMessage) ([]string, error) {
	if len(v) == 0 || v[0] != '[' {
		return nil, domain.NewValidationError("labels", domain.ReasonInvalidType, "must be an array of strings")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, domain.NewValidationError("labels", domain.ReasonInvalidType, "must be an array of strings")
	}
	labels := make([]string, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '"' {
			return nil, domain.NewValidationError("labels", domain.ReasonInvalidType, "element %d is not a string", i)
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, domain.NewValidationError("labels", domain.ReasonInvalidType, "element %d is not a string", i)
		}
		labels = append(labels, s)
	}
	return labels, nil
}

// parseConfirmation decodes the confirmation body and checks field types.
// Value rules are left to the validator.
func parseConfirmation(raw []byte, maxInitials int) (domain.ConfirmationRecord, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return domain.ConfirmationRecord{}, err
	}

	var rec domain.ConfirmationRecord
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"product", &rec.Product},
		{"time", &rec.Time},
		{"initials", &rec.Initials},
	} {
		v, err := present(fields, f.name)
		if err != nil {
			return rec, err
		}
		if len(v) == 0 || v[0] != '"' {
			return rec, domain.NewValidationError(f.name, domain.ReasonInvalidType, "must be a string")
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return rec, domain.NewValidationError(f.name, domain.ReasonInvalidType, "must be a string")
		}
	}

	qv, err := present(fields, "quantity")
	if err != nil {
		return rec, err
	}
	if rec.Quantity, err = parseQuantity(qv); err != nil {
		return rec, err
	}

	if err := validate.Struct(rec); err != nil {
		return rec, fromValidator(err)
	}
	if err := validate.Var(rec.Initials, "max="+strconv.Itoa(maxInitials)); err != nil {
		return rec, domain.NewValidationError("initials", domain.ReasonTooLong, "must be at most %d characters", maxInitials)
	}
	return rec, nil
}

// parseQuantity accepts a JSON number or a numeric string as submitted by forms.
func parseQuantity(v json.RawMessage) (float64, error) {
	text := string(v)
	switch {
	case isNumber(v):
	case len(v) > 0 && v[0] == '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, domain.NewValidationError("quantity", domain.ReasonInvalidType, "must be a number")
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return 0, domain.NewValidationError("quantity", domain.ReasonEmptyField, "must not be empty")
		}
	default:
		return 0, domain.NewValidationError("quantity", domain.ReasonInvalidType, "must be a number")
	}
	q, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, domain.NewValidationError("quantity", domain.ReasonNotNumeric, "%q is not a number", text)
	}
	return q, nil
}

func fromValidator(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return domain.NewValidationError("", domain.ReasonInvalidType, "%v", err)
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(fe.Field(), domain.ReasonEmptyField, "must not be empty")
	case "gte":
		return domain.NewValidationError(fe.Field(), domain.ReasonNegativeValue, "must not be negative")
	case "max":
		return domain.NewValidationError(fe.Field(), domain.ReasonTooLong, "must be at most %s characters", fe.Param())
	default:
		return domain.NewValidationError(fe.Field(), domain.ReasonInvalidType, "failed %s", fe.Tag())
	}
}
