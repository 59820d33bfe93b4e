package rpc

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/secretsanta/internal/errs"
)

var errInternal = errors.New("internal error")

// toConnectError maps a service error onto a Connect code. Internal errors
// are logged and replaced so storage details never reach the caller.
func toConnectError(logger *slog.Logger, procedure string, err error) error {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errs.KindInsufficientParticipants:
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errs.KindNotFound:
		return connect.NewError(connect.CodeNotFound, errs.ErrNotFound)
	case errs.KindInvalidToken:
		return connect.NewError(connect.CodePermissionDenied, errs.ErrInvalidToken)
	case errs.KindConflict:
		return connect.NewError(connect.CodeAlreadyExists, err)
	default:
		logger.Error("Internal error", "procedure", procedure, "error", err)
		return connect.NewError(connect.CodeInternal, errInternal)
	}
}

// KindOf recovers the error kind from an error returned by Client.
func KindOf(err error) errs.Kind {
	switch connect.CodeOf(err) {
	case connect.CodeInvalidArgument:
		return errs.KindValidation
	case connect.CodeFailedPrecondition:
		return errs.KindInsufficientParticipants
	case connect.CodeNotFound:
		return errs.KindNotFound
	case connect.CodePermissionDenied:
		return errs.KindInvalidToken
	case connect.CodeAlreadyExists:
		return errs.KindConflict
	default:
		return errs.KindInternal
	}
}
