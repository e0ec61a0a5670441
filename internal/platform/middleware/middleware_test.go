package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"leaddesk/internal/platform/middleware"
)

func jsonGuarded() http.Handler {
	return middleware.ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestContentTypeJSONAcceptsJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(`{"contact_name":"Ana"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	jsonGuarded().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestContentTypeJSONRejectsWrongType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader("contact_name=Ana"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	jsonGuarded().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestContentTypeJSONRejectsChunkedWrongType(t *testing.T) {
	// A chunked body has no Content-Length; the request reports -1.
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader("<client/>"))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "text/xml")
	rr := httptest.NewRecorder()
	jsonGuarded().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestContentTypeJSONAcceptsChunkedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(`{"contact_name":"Ana"}`))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	jsonGuarded().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestContentTypeJSONSkipsBodylessRequests(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodDelete, http.MethodPost} {
		req := httptest.NewRequest(method, "/clients/1", nil)
		rr := httptest.NewRecorder()
		jsonGuarded().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, method)
	}
}
