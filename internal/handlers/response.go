package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/objectset-backend/internal/apperrors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps service sentinels onto HTTP statuses;
// anything unrecognized is a plain 500.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperrors.ErrUnknownRecord),
		errors.Is(err, apperrors.ErrInvalidArgument):
		RespondError(c, http.StatusUnprocessableEntity, "invalid_input", err)
	case errors.Is(err, apperrors.ErrTypeMismatch):
		RespondError(c, http.StatusUnprocessableEntity, "type_mismatch", err)
	case errors.Is(err, apperrors.ErrUnsavedSet):
		RespondError(c, http.StatusConflict, "unsaved_set", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
