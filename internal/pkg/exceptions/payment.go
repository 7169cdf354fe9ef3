package exceptions

import (
	"fmt"

	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
)

// Payment lifecycle errors. Transition and signature failures never mutate
// state; the constructors only describe what was rejected.
var (
	ErrPaymentNotFound = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusNotFound, constvars.ErrClientPaymentNotFound, constvars.ErrDevPaymentNotFound)
	}
	ErrAppointmentNotFound = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusNotFound, constvars.ErrClientAppointmentNotFound, constvars.ErrDevAppointmentNotFound)
	}
	ErrAppointmentNotPayable = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusConflict, constvars.ErrClientAppointmentNotPayable, constvars.ErrDevAppointmentNotPayable)
	}
	ErrDuplicatePaymentAttempt = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusConflict, constvars.ErrClientDuplicatePaymentAttempt, constvars.ErrDevDuplicatePaymentAttempt)
	}
	ErrPaymentNotCancellable = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusConflict, constvars.ErrClientPaymentNotCancellable, constvars.ErrDevPaymentNotCancellable)
	}
	ErrInvalidStateTransition = func(from, to string) *CustomError {
		return BuildNewCustomError(nil, constvars.StatusConflict, constvars.ErrClientCannotProcessRequest, fmt.Sprintf("%s: %s -> %s", constvars.ErrDevInvalidStateTransition, from, to))
	}
	ErrSignatureInvalid = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusBadRequest, constvars.ErrClientInvalidCallbackSignature, constvars.ErrDevSignatureInvalid)
	}
	ErrSecureHashMissing = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusBadRequest, constvars.ErrClientInvalidCallbackSignature, constvars.ErrDevSecureHashMissing)
	}
	ErrRefundExceedsRemainder = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusUnprocessableEntity, constvars.ErrClientRefundExceedsRemainder, constvars.ErrDevRefundExceedsRemainder)
	}
	ErrRefundNotAllowed = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusConflict, constvars.ErrClientPaymentNotCancellable, constvars.ErrDevRefundNotAllowed)
	}
	ErrPaymentMethodUnsupported = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusBadRequest, constvars.ErrClientPaymentMethodUnsupported, constvars.ErrDevPaymentMethodUnsupported)
	}
	ErrGatewayUnavailable = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusBadGateway, constvars.ErrClientGatewayUnavailable, constvars.ErrDevGatewayUnavailable)
	}
	ErrGatewayMalformedResponse = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusBadGateway, constvars.ErrClientGatewayUnavailable, constvars.ErrDevGatewayMalformedResponse)
	}
	ErrTransactionRefInvalid = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusBadRequest, constvars.ErrClientCannotProcessRequest, constvars.ErrDevTransactionRefInvalid)
	}
	ErrCallbackAmountMismatch = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusBadRequest, constvars.ErrClientCannotProcessRequest, constvars.ErrDevCallbackAmountMismatch)
	}
	ErrCallbackUnknownTransaction = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusNotFound, constvars.ErrClientPaymentNotFound, constvars.ErrDevCallbackUnknownTransaction)
	}
)
