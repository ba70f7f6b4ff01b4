package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
		code string
	}{
		{NotFound("x"), http.StatusNotFound, CodeNotFound},
		{Validation("x"), http.StatusUnprocessableEntity, CodeValidation},
		{BadRequest("x"), http.StatusBadRequest, CodeValidation},
		{Unauthorized("x").WithCode(CodeSyncUnauthorized), http.StatusUnauthorized, CodeSyncUnauthorized},
		{Unavailable("x").WithCode(CodeExportBusy), http.StatusServiceUnavailable, CodeExportBusy},
		{Internal("x"), http.StatusInternalServerError, CodeInternal},
		{New(KindUnknown, "x"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("%v: status %d, want %d", tc.err, got, tc.want)
		}
		if got := tc.err.ResponseCode(); got != tc.code {
			t.Fatalf("%v: code %q, want %q", tc.err, got, tc.code)
		}
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUnavailable, "gotenberg unreachable", cause).WithOp("pdf.Export")

	if got := err.Error(); got != "pdf.Export: gotenberg unreachable: connection refused" {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}

func TestHelpersFindWrappedErrors(t *testing.T) {
	inner := Validation("bad option").WithCode(CodeUnknownOption).WithDetails(map[string]any{"step": "Voltage"})
	wrapped := fmt.Errorf("resolve: %w", inner)

	if !Is(wrapped, KindValidation) || !HasCode(wrapped, CodeUnknownOption) {
		t.Fatalf("expected kind and code through wrapping, got %v %q", GetKind(wrapped), GetCode(wrapped))
	}
	e, ok := As(wrapped)
	if !ok || e.Details == nil {
		t.Fatal("expected details to survive")
	}

	plain := errors.New("plain")
	if GetKind(plain) != KindUnknown || GetCode(plain) != "" {
		t.Fatal("plain errors carry no kind or code")
	}
}
