package rpc

import (
	"errors"

	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sergds/dnschanger/internal/changer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var codeOf = []struct {
	kind error
	code codes.Code
}{
	{catalog.ErrValidation, codes.InvalidArgument},
	{changer.ErrUnknownProfile, codes.NotFound},
	{changer.ErrBusy, codes.FailedPrecondition},
	{catalog.ErrPersist, codes.DataLoss},
}

// ToStatus turns a changer error into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, c := range codeOf {
		if errors.Is(err, c.kind) {
			return status.Error(c.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// remoteError keeps the server's message but matches the local sentinel with errors.Is.
type remoteError struct {
	msg  string
	kind error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.kind }

// FromStatus is the reverse of ToStatus. Unknown codes come back unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return err
	}
	for _, c := range codeOf {
		if st.Code() == c.code {
			return &remoteError{msg: st.Message(), kind: c.kind}
		}
	}
	return err
}
