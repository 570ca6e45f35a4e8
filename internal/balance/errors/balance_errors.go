package balanceerrors

import (
	"net/http"

	"leavedesk/internal/shared/apperror"
)

var (
	ErrInsufficientBalance = apperror.New(
		apperror.CodeInvalidInput,
		"insufficient leave balance",
		http.StatusBadRequest,
	)
	ErrUnknownLeaveType = apperror.New(
		apperror.CodeInvalidInput,
		"unknown leave type",
		http.StatusBadRequest,
	)
	ErrNoBalanceTracking = apperror.New(
		apperror.CodeInvalidInput,
		"this leave type does not carry a balance",
		http.StatusBadRequest,
	)
	ErrInvalidAdjustment = apperror.New(
		apperror.CodeInvalidInput,
		"adjustment would make the balance negative",
		http.StatusBadRequest,
	)
)
