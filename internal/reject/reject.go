// Package reject defines the engine's single error surface.
//
// Every public engine operation returns either a result or one Error carrying
// a stable reason-code token. Adapter layers must preserve the token verbatim
// so that invariant tests can string-match on reason_code=<CODE>.
package reject

import (
	"errors"
	"fmt"
)

// Canonical reason codes.
const (
	S2ParsePrefix          = "REJECT_S2_PARSE_PREFIX"
	S2ParseFlags           = "REJECT_S2_PARSE_FLAGS"
	S2PQPrefixParse        = "REJECT_S2_PQPREFIX_PARSE"
	S2ParseHdrLen          = "REJECT_S2_PARSE_HDR_LEN"
	S2ParseBodyLen         = "REJECT_S2_PARSE_BODY_LEN"
	S2HdrAuthFail          = "REJECT_S2_HDR_AUTH_FAIL"
	S2BodyAuthFail         = "REJECT_S2_BODY_AUTH_FAIL"
	S2EstablishBadInputLen = "REJECT_S2_ESTABLISH_BAD_INPUT_LEN"
	S2EstablishUnauth      = "REJECT_S2_ESTABLISH_UNAUTHENTICATED"
	SckaCtxtBadCtLen       = "REJECT_SCKA_CTXT_BAD_CT_LEN"
	SckaAdvNonMonotonic    = "REJECT_SCKA_ADV_NONMONOTONIC"
	SckaTargetUnknown      = "REJECT_SCKA_TARGET_UNKNOWN"
	SckaTargetConsumed     = "REJECT_SCKA_TARGET_CONSUMED"
	SckaTargetTombstoned   = "REJECT_SCKA_TARGET_TOMBSTONED"
	QsePadRngShort         = "REJECT_QSE_PAD_RNG_SHORT"
	QspCodecError          = "REJECT_QSP_CODEC_ERROR"
	QspRatchetError        = "REJECT_QSP_RATCHET_ERROR"
	Internal               = "REJECT_INTERNAL"
)

// Error is a typed reject carrying a stable reason code. Detail, when set,
// adds context for humans; the code alone is the contract.
type Error struct {
	Code   string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid request: reject: %s (%s); reason_code=%s", e.Code, e.Detail, e.Code)
	}
	return fmt.Sprintf("invalid request: reject: %s; reason_code=%s", e.Code, e.Code)
}

// New builds a reject with the given reason code.
func New(code string) *Error { return &Error{Code: code} }

// Newf builds a reject with the given reason code and a detail string.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the reason code from err, if err is (or wraps) an Error.
func CodeOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// Is matches rejects by reason code, so errors.Is works against sentinel
// rejects produced by New.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// FromCodec wraps a codec failure as REJECT_QSP_CODEC_ERROR, preserving the
// codec detail text.
func FromCodec(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: QspCodecError, Detail: err.Error()}
}

// FromRatchet wraps a ratchet bookkeeping failure as
// REJECT_QSP_RATCHET_ERROR.
func FromRatchet(detail string) *Error {
	return &Error{Code: QspRatchetError, Detail: detail}
}
