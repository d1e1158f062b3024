package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/tabkeeper/internal/auth"
	"github.com/mmynk/tabkeeper/internal/ledger"
	"github.com/mmynk/tabkeeper/internal/middleware"
)

// Response metadata carried on ledger errors so clients can branch without
// parsing messages.
const (
	HeaderErrorKind = "Ledger-Error-Kind"
	HeaderRemaining = "Ledger-Remaining"
)

// codeFor maps a ledger error kind to a Connect code.
func codeFor(k ledger.Kind) connect.Code {
	switch k {
	case ledger.KindNotFound:
		return connect.CodeNotFound
	case ledger.KindInvalidAmount, ledger.KindInvalidDate, ledger.KindInvalidInput:
		return connect.CodeInvalidArgument
	case ledger.KindStoreUnavailable:
		return connect.CodeUnavailable
	case ledger.KindPartialAllocation:
		return connect.CodeDataLoss
	default:
		return connect.CodeInternal
	}
}

// toConnectError converts an error from the ledger into a Connect error.
// The internal cause is only included when debug is set.
func toConnectError(err error, debug bool) *connect.Error {
	var le *ledger.Error
	if !errors.As(err, &le) {
		if debug {
			return connect.NewError(connect.CodeInternal, err)
		}
		return connect.NewError(connect.CodeInternal, errors.New(ledger.PublicMessage("")))
	}

	msg := le.Message
	if msg == "" {
		msg = ledger.PublicMessage(le.Kind)
	}
	if debug && le.Err != nil {
		msg += ": " + le.Err.Error()
	}

	cerr := connect.NewError(codeFor(le.Kind), errors.New(msg))
	cerr.Meta().Set(HeaderErrorKind, string(le.Kind))
	if le.Kind == ledger.KindInvalidAmount {
		cerr.Meta().Set(HeaderRemaining, le.Remaining.String())
	}
	return cerr
}

// requireOwner returns the authenticated user ID that scopes every ledger call.
func requireOwner(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}
