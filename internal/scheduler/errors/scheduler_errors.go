package schedulererrors

import (
	"net/http"

	"leavedesk/internal/shared/apperror"
)

var (
	ErrJobAlreadyExecuted = apperror.New(
		apperror.CodeConflict,
		"this job already ran successfully for the period",
		http.StatusConflict,
	)
	ErrInvalidYear = apperror.New(
		apperror.CodeInvalidInput,
		"year must be a four digit year",
		http.StatusBadRequest,
	)
)
