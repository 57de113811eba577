package dErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(fmt.Errorf("notify recommendation: %w", cause), CodeUpstream, "recommendation service unavailable")

	if !Is(err, CodeUpstream) {
		t.Fatalf("expected code %s, got %s", CodeUpstream, CodeOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to remain reachable via errors.Is")
	}
}

func TestCodeOfNonDomainError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("expected %s for non-domain error, got %s", CodeInternal, got)
	}
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput:   http.StatusBadRequest,
		CodeNotFound:       http.StatusNotFound,
		CodeAlreadyDecided: http.StatusConflict,
		CodeConflict:       http.StatusConflict,
		CodeUpstream:       http.StatusBadGateway,
		CodeTimeout:        http.StatusGatewayTimeout,
		CodeInternal:       http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := ToHTTPStatus(code); got != want {
			t.Errorf("ToHTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}
