package leaveerrors

import (
	"net/http"

	"leavedesk/internal/shared/apperror"
)

var (
	ErrInvalidUserID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid user id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"start_date must be before or equal end_date",
		http.StatusBadRequest,
	)
	ErrEndDateRequired = apperror.New(
		apperror.CodeInvalidInput,
		"end_date is required for this leave type",
		http.StatusBadRequest,
	)
	ErrUnknownLeaveType = apperror.New(
		apperror.CodeInvalidInput,
		"unknown leave type",
		http.StatusBadRequest,
	)
	ErrEarnedNotApplicable = apperror.New(
		apperror.CodeInvalidInput,
		"earned leave cannot be applied directly, apply casual leave instead",
		http.StatusBadRequest,
	)
	ErrNoWorkingDays = apperror.New(
		apperror.CodeInvalidInput,
		"the requested period contains no working days",
		http.StatusBadRequest,
	)
	ErrLeaveOverlap = apperror.New(
		apperror.CodeConflict,
		"leave already exists in overlapping period",
		http.StatusConflict,
	)
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"the request is not in a state that allows this action",
		http.StatusConflict,
	)
	ErrNotRequestOwner = apperror.New(
		apperror.CodeForbidden,
		"only the request owner can perform this action",
		http.StatusForbidden,
	)
	ErrNotApprover = apperror.New(
		apperror.CodeForbidden,
		"you are not the approver for this request",
		http.StatusForbidden,
	)
	ErrNoApproverAvailable = apperror.New(
		apperror.CodeInvalidState,
		"no approver could be determined for this request",
		http.StatusConflict,
	)
	ErrInvalidAction = apperror.New(
		apperror.CodeInvalidInput,
		"action must be APPROVE or REJECT",
		http.StatusBadRequest,
	)
	ErrWorkDateInFuture = apperror.New(
		apperror.CodeInvalidInput,
		"work_date cannot be in the future",
		http.StatusBadRequest,
	)
	ErrDuplicateCompOffClaim = apperror.New(
		apperror.CodeConflict,
		"a comp-off claim already exists for this work date",
		http.StatusConflict,
	)
	ErrCompOffNotFound = apperror.New(
		apperror.CodeNotFound,
		"comp-off claim not found",
		http.StatusNotFound,
	)
)
