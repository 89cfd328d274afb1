package rpc

import (
	"context"
	"errors"

	"github.com/signalsfoundry/planet-positions/core"
	"github.com/signalsfoundry/planet-positions/internal/dateparse"
	"github.com/signalsfoundry/planet-positions/kb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrInvalidRequest is used for malformed request payloads.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps ephemeris errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrPlanetNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, dateparse.ErrDateParse),
		errors.Is(err, core.ErrInvalidParameter):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrPlanetExists):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
