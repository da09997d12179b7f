package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReturnErrorStatusCodes(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{Errorf(EINVALID, "Bad input."), http.StatusBadRequest, "Bad input."},
		{Errorf(EUNAUTHORIZED, "Sign in."), http.StatusUnauthorized, "Sign in."},
		{Errorf(EFORBIDDEN, "Not yours."), http.StatusForbidden, "Not yours."},
		{Errorf(ENOTFOUND, "Gone."), http.StatusNotFound, "Gone."},
		{Errorf(ECONFLICT, "Taken."), http.StatusConflict, "Taken."},
		{fmt.Errorf("wrapped: %w", Errorf(ECONFLICT, "Taken.")), http.StatusConflict, "Taken."},
		{errors.New("db down"), http.StatusInternalServerError, "Internal error."},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		ReturnError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

		if rec.Code != tt.status {
			t.Fatalf("expected status %d got %d", tt.status, rec.Code)
		}
		var body ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Result || body.Error != tt.msg {
			t.Fatalf("unexpected body %+v", body)
		}
	}
}

func TestErrorCodeNil(t *testing.T) {
	if ErrorCode(nil) != "" || ErrorMessage(nil) != "" {
		t.Fatal("expected empty code and message for nil error")
	}
}
