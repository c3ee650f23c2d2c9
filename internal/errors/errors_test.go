package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetServiceErrorUnwrapsChain(t *testing.T) {
	base := NotFound("video", "abc")
	wrapped := fmt.Errorf("load video: %w", base)

	got := GetServiceError(wrapped)
	if got == nil {
		t.Fatal("expected service error in chain")
	}
	if got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("status = %d", got.HTTPStatus)
	}
	if got.Details["resource"] != "video" {
		t.Fatalf("details = %v", got.Details)
	}
	if GetServiceError(stderrors.New("plain")) != nil {
		t.Fatal("plain error should not convert")
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := stderrors.New("quota exceeded")
	err := Upstream("catalog", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("status = %d", err.HTTPStatus)
	}
}
