package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ailabben/dashboard-api/internal/middleware"
	"github.com/ailabben/dashboard-api/internal/model"
	"github.com/ailabben/dashboard-api/internal/repository"
	"github.com/ailabben/dashboard-api/internal/service"
	"github.com/ailabben/dashboard-api/internal/storage"
	"github.com/ailabben/dashboard-api/internal/utils"
)

const (
	bucket    = "customer_docs"
	jwtSecret = "handler-test-secret"
	admin     = "system@ailabben.no"
)

var invoicePDF = []byte("%PDF-1.7 invoice bytes")

type env struct {
	e       *echo.Echo
	store   *repository.MemoryStore
	objects storage.ObjectStore
	issuer  *service.TokenIssuer
	audit   *service.Auditor
}

type envOpt func(*envConfig)

type envConfig struct {
	objects storage.ObjectStore
	audit   service.AuditRecorder
	strict  bool
}

func withObjects(o storage.ObjectStore) envOpt   { return func(c *envConfig) { c.objects = o } }
func withRecorder(r service.AuditRecorder) envOpt { return func(c *envConfig) { c.audit = r } }
func strict() envOpt                              { return func(c *envConfig) { c.strict = true } }

func newEnv(t *testing.T, opts ...envOpt) *env {
	t.Helper()
	st := repository.NewMemoryStore()
	st.Documents.Put(model.Document{ID: "doc-123", CustomerID: "cust-1", FileName: "Invoice.pdf", FilePath: "blog-images/doc-123.pdf"})
	st.Documents.Put(model.Document{ID: "doc-img", CustomerID: "cust-1", FileName: "Photo.JPG",
		FilePath: "https://abc.supabase.co/storage/v1/object/public/customer_docs/photos/p1.jpg?t=1"})
	mem := storage.NewMemoryStore()
	mem.Put(bucket, "blog-images/doc-123.pdf", invoicePDF)
	mem.Put(bucket, "photos/p1.jpg", []byte("jpegdata"))

	cfg := envConfig{objects: mem, audit: st.Logs}
	for _, o := range opts {
		o(&cfg)
	}
	auditor := service.NewAuditor(cfg.audit, time.Second)
	validator := service.NewTokenValidator(st.Tokens, st.Documents, bucket)
	issuer := service.NewTokenIssuer(st.Tokens, st.Documents, service.IssuerConfig{BaseURL: "https://dash.example.no"})
	h := NewDeliveryHandler(validator, cfg.objects, auditor, bucket, time.Second, cfg.strict)

	e := echo.New()
	creds := middleware.Credentials{JWTSecret: jwtSecret}
	e.Any("/api/download", h.Download, middleware.OptionalIdentity(creds))
	e.Any("/api/preview", h.Preview, middleware.OptionalIdentity(creds))
	return &env{e: e, store: st, objects: cfg.objects, issuer: issuer, audit: auditor}
}

func (v *env) issue(t *testing.T, doc string, action model.ActionType) string {
	t.Helper()
	tok, err := v.issuer.Issue(context.Background(), service.IssueRequest{DocumentID: doc, Caller: admin, Action: action})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok.Token
}

func (v *env) get(path string, hdr ...string) *httptest.ResponseRecorder {
	return v.request(http.MethodGet, path, hdr...)
}

func (v *env) request(method, path string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rec.Body, err)
	}
	return body["error"]
}

func TestDownloadEndToEnd(t *testing.T) {
	v := newEnv(t)
	tok := v.issue(t, "doc-123", model.ActionDownload)

	rec := v.get("/api/download?token="+tok, "User-Agent", "e2e-test", "X-Forwarded-For", "203.0.113.7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Invoice.pdf"` {
		t.Fatalf("disposition = %q", cd)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache, no-store, must-revalidate" {
		t.Fatalf("cache-control = %q", cc)
	}
	if rec.Header().Get("Pragma") != "no-cache" || rec.Header().Get("Expires") != "0" {
		t.Fatalf("cache headers %v", rec.Header())
	}
	if !bytes.Equal(rec.Body.Bytes(), invoicePDF) {
		t.Fatalf("body = %q", rec.Body.Bytes())
	}

	again := v.get("/api/download?token=" + tok)
	if again.Code != http.StatusForbidden {
		t.Fatalf("second download status = %d", again.Code)
	}
	if strings.TrimSpace(again.Body.String()) != `{"error":"Invalid or expired token"}` {
		t.Fatalf("second download body = %s", again.Body)
	}

	v.audit.Wait()
	entries := v.store.Logs.Entries()
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d", len(entries))
	}
	var ok, failed model.DownloadLogEntry
	for _, e := range entries {
		if e.DownloadSuccessful {
			ok = e
		} else {
			failed = e
		}
	}
	if ok.DocumentID != "doc-123" || ok.IPAddress != "203.0.113.7" || ok.UserAgent != "e2e-test" ||
		ok.FileSize == nil || *ok.FileSize != int64(len(invoicePDF)) || ok.TokenID == nil || ok.UserID != admin {
		t.Fatalf("success entry = %+v", ok)
	}
	if failed.ErrorMessage != string(service.ReasonAlreadyUsed) {
		t.Fatalf("failure entry = %+v", failed)
	}
}

type brokenRecorder struct{}

func (brokenRecorder) Record(context.Context, model.DownloadLogEntry) error {
	return errors.New("download_logs unavailable")
}

type panickingRecorder struct{}

func (panickingRecorder) Record(context.Context, model.DownloadLogEntry) error { panic("boom") }

func TestAuditFailureDoesNotAffectDelivery(t *testing.T) {
	for name, rec := range map[string]service.AuditRecorder{"error": brokenRecorder{}, "panic": panickingRecorder{}} {
		t.Run(name, func(t *testing.T) {
			v := newEnv(t, withRecorder(rec))
			tok := v.issue(t, "doc-123", model.ActionDownload)
			res := v.get("/api/download?token=" + tok)
			v.audit.Wait()
			if res.Code != http.StatusOK || !bytes.Equal(res.Body.Bytes(), invoicePDF) {
				t.Fatalf("status = %d body %q", res.Code, res.Body)
			}
		})
	}
}

func TestPreviewHeadersAndReuse(t *testing.T) {
	v := newEnv(t)
	tok := v.issue(t, "doc-img", model.ActionPreview)

	for i := 0; i < 2; i++ {
		rec := v.get("/api/preview?token=" + tok)
		if rec.Code != http.StatusOK {
			t.Fatalf("view %d: %d %s", i, rec.Code, rec.Body)
		}
		h := rec.Header()
		want := map[string]string{
			"Content-Type":           "image/jpeg",
			"Content-Disposition":    `inline; filename="Photo.JPG"`,
			"Cache-Control":          "private, no-cache, no-store, must-revalidate",
			"X-Content-Type-Options": "nosniff",
			"X-Frame-Options":        "SAMEORIGIN",
			"Pragma":                 "no-cache",
			"Expires":                "0",
		}
		for k, w := range want {
			if got := h.Get(k); got != w {
				t.Fatalf("%s = %q, want %q", k, got, w)
			}
		}
		if rec.Body.String() != "jpegdata" {
			t.Fatalf("body = %q", rec.Body)
		}
	}
	v.audit.Wait()
	for _, e := range v.store.Logs.Entries() {
		if e.ActionType != model.ActionPreview || !e.DownloadSuccessful {
			t.Fatalf("entry = %+v", e)
		}
	}
}

func TestActionTypeMismatchIsForbidden(t *testing.T) {
	v := newEnv(t)
	pv := v.issue(t, "doc-123", model.ActionPreview)
	dl := v.issue(t, "doc-123", model.ActionDownload)

	if rec := v.get("/api/download?token=" + pv); rec.Code != http.StatusForbidden || errorBody(t, rec) != "Invalid or expired token" {
		t.Fatalf("preview token on download: %d %s", rec.Code, rec.Body)
	}
	if rec := v.get("/api/preview?token=" + dl); rec.Code != http.StatusForbidden {
		t.Fatalf("download token on preview: %d", rec.Code)
	}
}

func TestRequestValidation(t *testing.T) {
	v := newEnv(t)
	tok := v.issue(t, "doc-123", model.ActionDownload)

	rec := v.request(http.MethodPost, "/api/download?token="+tok)
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != "GET" {
		t.Fatalf("POST: %d %v", rec.Code, rec.Header())
	}
	if rec := v.request(http.MethodDelete, "/api/preview?token="+tok); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE: %d", rec.Code)
	}
	if rec := v.get("/api/download"); rec.Code != http.StatusBadRequest || errorBody(t, rec) != "Missing token" {
		t.Fatalf("missing token: %d %s", rec.Code, rec.Body)
	}
	if rec := v.get("/api/download?token=not-a-token"); rec.Code != http.StatusForbidden {
		t.Fatalf("unknown token: %d", rec.Code)
	}
	// The rejected POST must not have consumed the token.
	if rec := v.get("/api/download?token=" + tok); rec.Code != http.StatusOK {
		t.Fatalf("token burnt by rejected request: %d", rec.Code)
	}
	v.audit.Wait()
	for _, e := range v.store.Logs.Entries() {
		if e.TokenID == nil {
			t.Fatalf("unknown-token attempt audited: %+v", e)
		}
	}
}

type failingObjects struct{ err error }

func (f failingObjects) FetchBytes(context.Context, string, string) ([]byte, error) {
	return nil, f.err
}

func TestStorageFailuresKeepTokenRedeemable(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"missing object", storage.ErrNotFound, http.StatusNotFound, "File not found"},
		{"timeout", storage.ErrUnavailable, http.StatusNotFound, "File not found"},
		{"backend error", errors.New("500 from storage"), http.StatusBadGateway, "File temporarily unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newEnv(t, withObjects(failingObjects{err: tc.err}))
			tok := v.issue(t, "doc-123", model.ActionDownload)
			rec := v.get("/api/download?token=" + tok)
			if rec.Code != tc.status || errorBody(t, rec) != tc.msg {
				t.Fatalf("status = %d body %s", rec.Code, rec.Body)
			}
			row, _ := v.store.Tokens.FindByToken(context.Background(), tok)
			if row.UsedAt != nil {
				t.Fatal("token consumed although nothing was delivered")
			}
			v.audit.Wait()
			entries := v.store.Logs.Entries()
			if len(entries) != 1 || entries[0].DownloadSuccessful || !strings.HasPrefix(entries[0].ErrorMessage, "storage: ") {
				t.Fatalf("entries = %+v", entries)
			}
		})
	}
}

func TestMissingDocumentIsNotFound(t *testing.T) {
	v := newEnv(t)
	iss := service.NewTokenIssuer(v.store.Tokens, nil, service.IssuerConfig{})
	tok, err := iss.Issue(context.Background(), service.IssueRequest{DocumentID: "doc-deleted", Caller: admin})
	if err != nil {
		t.Fatal(err)
	}
	rec := v.get("/api/download?token=" + tok.Token)
	if rec.Code != http.StatusNotFound || errorBody(t, rec) != "File not found" {
		t.Fatalf("%d %s", rec.Code, rec.Body)
	}
}

func TestUnnamedDocumentFallsBackToGenericName(t *testing.T) {
	v := newEnv(t)
	v.store.Documents.Put(model.Document{ID: "doc-anon", FilePath: "scans/s1.pdf"})
	v.objects.(*storage.MemoryStore).Put(bucket, "scans/s1.pdf", invoicePDF)

	rec := v.get("/api/download?token=" + v.issue(t, "doc-anon", model.ActionDownload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="document.pdf"` {
		t.Fatalf("disposition = %q", cd)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}

	v.store.Documents.Put(model.Document{ID: "doc-bare", FilePath: "scans/raw"})
	v.objects.(*storage.MemoryStore).Put(bucket, "scans/raw", []byte("x"))
	rec = v.get("/api/preview?token=" + v.issue(t, "doc-bare", model.ActionPreview))
	if cd := rec.Header().Get("Content-Disposition"); cd != `inline; filename="document"` {
		t.Fatalf("disposition = %q", cd)
	}
}

func TestStrictIdentity(t *testing.T) {
	v := newEnv(t, strict())
	tok := v.issue(t, "doc-123", model.ActionDownload)

	if rec := v.get("/api/download?token=" + tok); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rec.Code)
	}
	other, _ := utils.NewAccessToken(jwtSecret, "someone@else.no", 5)
	if rec := v.get("/api/download?token="+tok, "Authorization", "Bearer "+other.Token); rec.Code != http.StatusForbidden {
		t.Fatalf("other identity: %d", rec.Code)
	}
	owner, _ := utils.NewAccessToken(jwtSecret, admin, 5)
	if rec := v.get("/api/download?token="+tok, "Authorization", "Bearer "+owner.Token); rec.Code != http.StatusOK {
		t.Fatalf("issuing identity: %d %s", rec.Code, rec.Body)
	}
}
