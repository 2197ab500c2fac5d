package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vaheed/certd/internal/certificate"
	"github.com/vaheed/certd/internal/mockid"
)

func newTestServer(t *testing.T, opts ...certificate.Option) *Server {
	t.Helper()
	svc := certificate.NewService(certificate.NewMemoryStore(), opts...)
	return New(zap.NewNop(), svc, nil, time.Second)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

const aliceBody = `{"studentName":"Alice","courseName":"CS101","certificateId":"CERT-1","grade":"A","issuerAddress":"Wallet1"}`

func TestRouterProvidesExpectedEndpoints(t *testing.T) {
	router := newTestServer(t).Router()
	expected := map[string]int{
		"/healthz":          http.StatusOK,
		"/readyz":           http.StatusOK,
		"/version":          http.StatusOK,
		"/metrics":          http.StatusOK,
		"/api/health":       http.StatusOK,
		"/api/certificates": http.StatusOK,
	}
	for path, code := range expected {
		path, code := path, code
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			if rr := do(t, router, http.MethodGet, path, ""); rr.Code != code {
				t.Fatalf("route %s returned %d", path, rr.Code)
			}
		})
	}
}

func TestCertificateLifecycle(t *testing.T) {
	router := newTestServer(t).Router()

	rr := do(t, router, http.MethodPost, "/api/certificate/issue", aliceBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("issue: %d %s", rr.Code, rr.Body)
	}
	issued := decode[issueResponse](t, rr)
	if !issued.Success || issued.Message != "Certificate issued successfully" {
		t.Fatalf("unexpected issue response %+v", issued)
	}
	if len(issued.CertificateAddress) != mockid.AddressLength || len(issued.Signature) != mockid.SignatureLength {
		t.Fatalf("bad identifiers %q %q", issued.CertificateAddress, issued.Signature)
	}
	if issued.Certificate.CertificateAddress != issued.CertificateAddress || issued.Certificate.IsRevoked {
		t.Fatalf("bad certificate %+v", issued.Certificate)
	}

	rr = do(t, router, http.MethodGet, "/api/certificate/verify/"+issued.CertificateAddress, "")
	v := decode[verifyResponse](t, rr)
	if rr.Code != http.StatusOK || !v.IsValid || !v.Valid || v.Message != "Certificate is valid" {
		t.Fatalf("verify before revoke: %d %+v", rr.Code, v)
	}

	rr = do(t, router, http.MethodPost, "/api/certificate/revoke", `{"certificateAddress":"`+issued.CertificateAddress+`","issuerAddress":"WalletEve"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("revoke by other issuer: %d", rr.Code)
	}
	if e := decode[map[string]string](t, rr); e["error"] != "Only the issuer can revoke this certificate" {
		t.Fatalf("unexpected error body %v", e)
	}

	rr = do(t, router, http.MethodPost, "/api/certificate/revoke", `{"certificateAddress":"`+issued.CertificateAddress+`","issuerAddress":"Wallet1"}`)
	rev := decode[revokeResponse](t, rr)
	if rr.Code != http.StatusOK || !rev.Success || !rev.Certificate.IsRevoked || len(rev.Signature) != mockid.SignatureLength {
		t.Fatalf("revoke: %d %+v", rr.Code, rev)
	}

	rr = do(t, router, http.MethodGet, "/api/certificate/verify/"+issued.CertificateAddress, "")
	v = decode[verifyResponse](t, rr)
	if v.IsValid || v.Message != "Certificate has been revoked" {
		t.Fatalf("verify after revoke: %+v", v)
	}

	rr = do(t, router, http.MethodGet, "/api/certificates", "")
	list := decode[listResponse](t, rr)
	if !list.Success || list.Count != 1 || len(list.Certificates) != 1 || !list.Certificates[0].IsRevoked {
		t.Fatalf("list: %+v", list)
	}
}

func TestIssueValidation(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()
	for _, body := range []string{
		`{"courseName":"CS101","certificateId":"CERT-1","grade":"A"}`,
		`{"studentName":"Alice","certificateId":"CERT-1","grade":"A"}`,
		`{"studentName":"Alice","courseName":"CS101","grade":"A"}`,
		`{"studentName":"Alice","courseName":"CS101","certificateId":"CERT-1","grade":""}`,
		``,
	} {
		rr := do(t, router, http.MethodPost, "/api/certificate/issue", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400 got %d", body, rr.Code)
		}
		if e := decode[map[string]string](t, rr); e["error"] != "Missing required fields" {
			t.Fatalf("body %q: error %v", body, e)
		}
	}
	list := decode[listResponse](t, do(t, router, http.MethodGet, "/api/certificates", ""))
	if list.Count != 0 || list.Certificates == nil {
		t.Fatalf("store mutated or nil list: %+v", list)
	}
}

func TestInvalidJSON(t *testing.T) {
	router := newTestServer(t).Router()
	for _, path := range []string{"/api/certificate/issue", "/api/certificate/revoke"} {
		rr := do(t, router, http.MethodPost, path, `{"studentName":`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", path, rr.Code)
		}
		if e := decode[map[string]string](t, rr); e["error"] != "Invalid JSON in request body" {
			t.Fatalf("%s: error %v", path, e)
		}
	}
}

func TestRevokeErrors(t *testing.T) {
	router := newTestServer(t).Router()
	rr := do(t, router, http.MethodPost, "/api/certificate/revoke", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing address: %d", rr.Code)
	}
	rr = do(t, router, http.MethodPost, "/api/certificate/revoke", `{"certificateAddress":"unknown"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown address: %d", rr.Code)
	}
	if e := decode[map[string]string](t, rr); e["error"] != "Certificate not found" {
		t.Fatalf("error %v", e)
	}
}

func TestRevokeWithoutIssuerCheck(t *testing.T) {
	router := newTestServer(t, certificate.WithIssuerCheck(false)).Router()
	issued := decode[issueResponse](t, do(t, router, http.MethodPost, "/api/certificate/issue", aliceBody))
	rr := do(t, router, http.MethodPost, "/api/certificate/revoke", `{"certificateAddress":"`+issued.CertificateAddress+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}

func TestVerifyNotFound(t *testing.T) {
	router := newTestServer(t).Router()
	rr := do(t, router, http.MethodGet, "/api/certificate/verify/doesnotexist", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestHealthReportsCount(t *testing.T) {
	router := newTestServer(t).Router()
	do(t, router, http.MethodPost, "/api/certificate/issue", aliceBody)
	do(t, router, http.MethodPost, "/api/certificate/issue", aliceBody)
	h := decode[healthResponse](t, do(t, router, http.MethodGet, "/api/health", ""))
	if h.Status != "Backend API is running" || h.CertificateCount == nil || *h.CertificateCount != 2 {
		t.Fatalf("unexpected health %+v", h)
	}
	if _, err := time.Parse(time.RFC3339, h.Timestamp); err != nil {
		t.Fatalf("timestamp: %v", err)
	}
}

func TestCORS(t *testing.T) {
	router := newTestServer(t).Router()
	req := httptest.NewRequest(http.MethodOptions, "/api/certificate/issue", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight: %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing allow-origin")
	}
	if rr.Header().Get("Access-Control-Allow-Methods") != http.MethodPost {
		t.Fatalf("unexpected allow-methods %q", rr.Header().Get("Access-Control-Allow-Methods"))
	}
	if rr.Header().Get("Access-Control-Allow-Headers") != "Content-Type" {
		t.Fatalf("unexpected allow-headers %q", rr.Header().Get("Access-Control-Allow-Headers"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/certificates", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("simple request: %d allow-origin=%q", rr.Code, rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestServer(t).Router()
	if rr := do(t, router, http.MethodGet, "/api/certificate/issue", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	router := newTestServer(t).Router()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id not echoed")
	}
	rr = do(t, router, http.MethodGet, "/healthz", "")
	if len(rr.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("expected generated uuid, got %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestRecovererCatchesPanics(t *testing.T) {
	called := false
	srv := newTestServer(t)
	handler := srv.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if !called {
		t.Fatalf("handler was not invoked")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
}

func TestWithJSONWrapsResponse(t *testing.T) {
	srv := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.withJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/json", nil))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %s", ct)
	}
}

func TestAccessLogIncludesStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := New(zap.New(core), certificate.NewService(certificate.NewMemoryStore()), nil, 0)

	rr := httptest.NewRecorder()
	srv.withAccessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/log", nil))

	entries := logs.FilterMessage("http").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["status"]; got != int64(http.StatusTeapot) {
		t.Fatalf("log missing status: %v", entries[0].ContextMap())
	}
}

func TestBodyTooLarge(t *testing.T) {
	router := newTestServer(t).Router()
	big := `{"studentName":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/certificate/issue", bytes.NewBufferString(big)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}
