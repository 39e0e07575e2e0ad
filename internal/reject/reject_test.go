package reject_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"qshield/internal/codec"
	"qshield/internal/reject"
)

func TestErrorFormatCarriesReasonCode(t *testing.T) {
	err := reject.New(reject.S2ParsePrefix)
	want := "invalid request: reject: REJECT_S2_PARSE_PREFIX; reason_code=REJECT_S2_PARSE_PREFIX"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestDetailKeepsTokenMatchable(t *testing.T) {
	err := reject.Newf(reject.QsePadRngShort, "need %d bytes", 512)
	if !strings.Contains(err.Error(), "reason_code=REJECT_QSE_PAD_RNG_SHORT") {
		t.Fatalf("token lost: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "need 512 bytes") {
		t.Fatalf("detail lost: %q", err.Error())
	}
}

func TestCodeOfUnwraps(t *testing.T) {
	err := fmt.Errorf("relay: deliver: %w", reject.New(reject.S2HdrAuthFail))
	code, ok := reject.CodeOf(err)
	if !ok || code != reject.S2HdrAuthFail {
		t.Fatalf("CodeOf = %q, %v", code, ok)
	}
	if _, ok := reject.CodeOf(errors.New("plain")); ok {
		t.Fatal("untyped error reported a code")
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", reject.New(reject.SckaTargetUnknown))
	if !errors.Is(err, reject.New(reject.SckaTargetUnknown)) {
		t.Fatal("errors.Is must match rejects by code")
	}
	if errors.Is(err, reject.New(reject.SckaTargetConsumed)) {
		t.Fatal("errors.Is matched a different code")
	}
}

func TestFromCodecPreservesDetail(t *testing.T) {
	err := reject.FromCodec(codec.Invalid("bucket_len_fields"))
	if err.Code != reject.QspCodecError {
		t.Fatalf("code = %q", err.Code)
	}
	if !strings.Contains(err.Error(), "bucket_len_fields") {
		t.Fatalf("codec detail lost: %q", err.Error())
	}
}
