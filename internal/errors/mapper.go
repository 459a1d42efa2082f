// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

const errorDomain = "match.muzz"

var grpcCodes = map[Kind]codes.Code{
	KindUnauthenticated:     codes.Unauthenticated,
	KindInvalidTarget:       codes.InvalidArgument,
	KindConflict:            codes.AlreadyExists,
	KindForbidden:           codes.PermissionDenied,
	KindNotFound:            codes.NotFound,
	KindInsufficientCredits: codes.FailedPrecondition,
	KindNeedsOptIn:          codes.FailedPrecondition,
	KindNeedsLocation:       codes.FailedPrecondition,
	KindInvalidInput:        codes.InvalidArgument,
}

var httpCodes = map[Kind]int{
	KindUnauthenticated:     http.StatusUnauthorized,
	KindInvalidTarget:       http.StatusBadRequest,
	KindConflict:            http.StatusConflict,
	KindForbidden:           http.StatusForbidden,
	KindNotFound:            http.StatusNotFound,
	KindInsufficientCredits: http.StatusPaymentRequired,
	KindNeedsOptIn:          http.StatusPreconditionRequired,
	KindNeedsLocation:       http.StatusPreconditionRequired,
	KindInvalidInput:        http.StatusBadRequest,
}

// Map converts engine/repo/infra errors into gRPC-friendly status errors.
// Classified errors carry a google.rpc.ErrorInfo detail whose reason is the
// kind code; InsufficientCredits also sets metadata needs_card=true so clients
// can route to the paywall.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var e *Error
	switch {
	case errors.As(err, &e):
		st := status.New(grpcCodes[e.Kind], e.Msg)
		info := &errdetails.ErrorInfo{Reason: e.Kind.Code(), Domain: errorDomain}
		if e.Kind == KindInsufficientCredits {
			info.Metadata = map[string]string{"needs_card": "true"}
		}
		if withDetails, dErr := st.WithDetails(info); dErr == nil {
			st = withDetails
		}
		return st.Err()

	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

// HTTPStatus returns the HTTP status for err together with its kind.
func HTTPStatus(err error) (int, Kind) {
	var e *Error
	if errors.As(err, &e) {
		return httpCodes[e.Kind], e.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, KindNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, KindInternal
	}
	return http.StatusInternalServerError, KindInternal
}

// Message returns the caller-safe message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "record not found"
	}
	return "internal server error"
}

// Decoded is what FromStatus recovers from an error produced by Map.
type Decoded struct {
	Kind      Kind
	Message   string
	NeedsCard bool
}

var kindsByCode = func() map[string]Kind {
	m := make(map[string]Kind, len(kindCodes))
	for k, c := range kindCodes {
		m[c] = k
	}
	return m
}()

var kindsByGRPC = map[codes.Code]Kind{
	codes.Unauthenticated:  KindUnauthenticated,
	codes.InvalidArgument:  KindInvalidInput,
	codes.AlreadyExists:    KindConflict,
	codes.PermissionDenied: KindForbidden,
	codes.NotFound:         KindNotFound,
}

// FromStatus is the inverse of Map. The ErrorInfo reason wins over the gRPC
// code; plain (unmapped) errors fall back to KindOf and Message.
func FromStatus(err error) Decoded {
	st, ok := status.FromError(err)
	if !ok {
		return Decoded{Kind: KindOf(err), Message: Message(err)}
	}
	out := Decoded{Kind: KindInternal, Message: st.Message()}
	if k, ok := kindsByGRPC[st.Code()]; ok {
		out.Kind = k
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		if k, ok := kindsByCode[info.GetReason()]; ok {
			out.Kind = k
		}
		out.NeedsCard = info.GetMetadata()["needs_card"] == "true"
	}
	if out.Kind == KindInternal {
		out.Message = "internal server error"
	}
	return out
}

// StatusForKind is the HTTP status of k.
func StatusForKind(k Kind) int {
	if code, ok := httpCodes[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}
