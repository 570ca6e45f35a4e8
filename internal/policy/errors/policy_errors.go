package policyerrors

import (
	"net/http"

	"leavedesk/internal/shared/apperror"
)

var (
	ErrInvalidYear = apperror.New(
		apperror.CodeInvalidInput,
		"year must be a four digit year",
		http.StatusBadRequest,
	)
	ErrInvalidQuota = apperror.New(
		apperror.CodeInvalidInput,
		"quotas must be zero or positive",
		http.StatusBadRequest,
	)
)
