package api

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bcchr/detbuilder/internal/types"
)

// ValidationError lists the syntax defects that made settings invalid.
type ValidationError struct {
	Defects []string
}

func (e *ValidationError) Error() string {
	return "invalid trigger syntax: " + strings.Join(e.Defects, "; ")
}

func (e *ValidationError) Unwrap() error {
	return types.ErrInvalidArgument
}

// Code maps a service error to a gRPC status code.
// Storage and other unclassified errors map to Unavailable.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, types.ErrProjectNotFound),
		errors.Is(err, types.ErrSettingsNotFound),
		errors.Is(err, types.ErrInstrumentNotFound):
		return codes.NotFound
	case errors.Is(err, types.ErrSettingsConflict):
		return codes.Aborted
	case errors.Is(err, types.ErrAmbiguousLink),
		errors.Is(err, types.ErrMissingLinkValue):
		return codes.FailedPrecondition
	case errors.Is(err, types.ErrInvalidArgument),
		errors.Is(err, types.ErrMisalignedSettings),
		errors.Is(err, types.ErrNoDestinationProject),
		errors.Is(err, types.ErrEmptyCondition),
		errors.Is(err, types.ErrConditionTooLong),
		errors.Is(err, types.ErrExpressionTooDeep),
		errors.Is(err, types.ErrMalformedClause),
		errors.Is(err, types.ErrUnbalancedQuotes),
		errors.Is(err, types.ErrFieldNotFound),
		errors.Is(err, types.ErrEventNotFound),
		errors.Is(err, types.ErrNoRecordData):
		return codes.InvalidArgument
	default:
		return codes.Unavailable
	}
}

// StatusError converts err into a gRPC status error.
func StatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}
