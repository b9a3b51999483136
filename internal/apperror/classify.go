package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Classification is the status and message sent back for an error.
type Classification struct {
	Status  int
	Message string
	Stack   string
}

// Classify maps err to an HTTP status and message. currentStatus is the
// status already set on the response; it is kept for unclassified errors
// when it is not 200.
func Classify(err error, currentStatus int) Classification {
	c := Classification{
		Status:  currentStatus,
		Message: err.Error(),
	}
	if c.Status == 0 || c.Status == http.StatusOK {
		c.Status = http.StatusInternalServerError
	}

	var dup *DuplicateKeyError
	var appErr AppError
	switch {
	case errors.Is(err, ErrMalformedID):
		c.Status = http.StatusNotFound
		c.Message = "Resource not found"
	case errors.As(err, &dup):
		c.Status = http.StatusBadRequest
		c.Message = fmt.Sprintf("%s already exists", dup.Field)
	case errors.As(err, &appErr):
		c.Status = appErr.HTTPStatus()
		if c.Status == 0 {
			c.Status = http.StatusInternalServerError
		}
		c.Message = appErr.Error()
		c.Stack = appErr.Stack()
	}
	return c
}
