package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/emg.report/internal/testutil"
)

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusBadRequest, "test error")

	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %s, want application/json", ct)
	}

	var resp map[string]string
	testutil.DecodeJSONBody(t, rec.Body, &resp)
	if resp["error"] != "test error" {
		t.Errorf("error = %s, want 'test error'", resp["error"])
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"message": "hello"})

	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	var resp map[string]string
	testutil.DecodeJSONBody(t, rec.Body, &resp)
	if resp["message"] != "hello" {
		t.Errorf("message = %s, want 'hello'", resp["message"])
	}
}

func TestWriteJSONOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"count": 42})

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp map[string]int
	testutil.DecodeJSONBody(t, rec.Body, &resp)
	if resp["count"] != 42 {
		t.Errorf("count = %d, want 42", resp["count"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	MethodNotAllowed(rec)

	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestBadRequest(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	BadRequest(rec, "invalid input")

	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestInternalServerError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	InternalServerError(rec, "something went wrong")

	testutil.AssertStatusCode(t, rec.Code, http.StatusInternalServerError)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NotFound(rec, "resource not found")

	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}
