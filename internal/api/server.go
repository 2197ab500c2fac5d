package api

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/cors"
    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/vaheed/certd/internal/certificate"
    "github.com/vaheed/certd/internal/metrics"
    "github.com/vaheed/certd/internal/version"
    "github.com/vaheed/certd/internal/webhook"
)

const maxBodyBytes = 1 << 20

const (
    msgInvalidJSON  = "Invalid JSON in request body"
    msgIssueFailed  = "Failed to issue certificate"
    msgRevokeFailed = "Failed to revoke certificate"
    msgVerifyFailed = "Failed to verify certificate"
    msgListFailed   = "Failed to fetch certificates"
)

type Server struct {
    log     *zap.Logger
    svc     *certificate.Service
    hooks   *webhook.Client
    timeout time.Duration
}

// New wires the HTTP layer to svc. storeTimeout bounds every service call; zero means
// no extra deadline beyond the request's own.
func New(l *zap.Logger, svc *certificate.Service, hooks *webhook.Client, storeTimeout time.Duration) *Server {
    return &Server{log: l, svc: svc, hooks: hooks, timeout: storeTimeout}
}

func (s *Server) Router() http.Handler {
    r := chi.NewRouter()
    r.Use(corsHandler(), withRequestID, s.withJSON, s.withAccessLog, instrument, s.recoverer)
    r.NotFound(func(w http.ResponseWriter, r *http.Request) { writeError(w, http.StatusNotFound, "Not found") })
    r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) { writeError(w, http.StatusMethodNotAllowed, "Method not allowed") })

    r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
    r.Get("/readyz", s.handleReady)
    r.Get("/version", s.handleVersion)
    r.Handle("/metrics", PromHandler())

    r.Route("/api", func(r chi.Router) {
        r.Post("/certificate/issue", s.issue)
        r.Post("/certificate/revoke", s.revoke)
        r.Get("/certificate/verify/{address}", s.verify)
        r.Get("/certificates", s.list)
        r.Get("/health", s.health)
    })
    return r
}

func (s *Server) withJSON(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json")
        next.ServeHTTP(w, r)
    })
}

// corsHandler allows any origin, as browser front ends are served from elsewhere.
func corsHandler() func(http.Handler) http.Handler {
    return cors.Handler(cors.Options{
        AllowedOrigins:       []string{"*"},
        AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
        AllowedHeaders:       []string{"Content-Type"},
        ExposedHeaders:       []string{requestIDHeader},
        MaxAge:               300,
    })
}

type ctxKey struct{}

const requestIDHeader = "X-Request-ID"

func withRequestID(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        id := r.Header.Get(requestIDHeader)
        if id == "" {
            id = uuid.NewString()
        }
        w.Header().Set(requestIDHeader, id)
        next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
    })
}

// RequestID returns the id assigned to the request carrying ctx, if any.
func RequestID(ctx context.Context) string {
    id, _ := ctx.Value(ctxKey{}).(string)
    return id
}

// recoverer ensures handler panics don't crash the server; returns 500 and logs minimal info
func (s *Server) recoverer(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                s.log.Error("panic", zap.Any("panic", rec), zap.String("path", r.URL.Path), zap.String("request_id", RequestID(r.Context())))
                writeError(w, http.StatusInternalServerError, "internal")
            }
        }()
        next.ServeHTTP(w, r)
    })
}

// withAccessLog logs method, path, status code and duration for every request
func (s *Server) withAccessLog(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
        start := time.Now()
        defer func() {
            s.log.Info("http",
                zap.String("method", r.Method),
                zap.String("path", r.URL.Path),
                zap.Int("status", sw.code),
                zap.String("remote", r.RemoteAddr),
                zap.Duration("duration", time.Since(start)),
                zap.String("request_id", RequestID(r.Context())),
            )
        }()
        next.ServeHTTP(sw, r)
    })
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
    writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON object body. An empty body decodes as {}.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
    dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
    if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
        writeError(w, http.StatusBadRequest, msgInvalidJSON)
        return false
    }
    return true
}

// fail maps service errors onto statuses. Internal errors are logged and replaced by
// a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
    switch certificate.KindOf(err) {
    case certificate.KindValidation:
        writeError(w, http.StatusBadRequest, err.Error())
    case certificate.KindNotFound:
        writeError(w, http.StatusNotFound, err.Error())
    case certificate.KindForbidden:
        writeError(w, http.StatusForbidden, err.Error())
    default:
        s.log.Error(internalMsg, zap.Error(err), zap.String("request_id", RequestID(r.Context())))
        writeError(w, http.StatusInternalServerError, internalMsg)
    }
}

func (s *Server) opContext(r *http.Request) (context.Context, context.CancelFunc) {
    if s.timeout <= 0 {
        return context.WithCancel(r.Context())
    }
    return context.WithTimeout(r.Context(), s.timeout)
}

// notify delivers a webhook without holding up the response.
func (s *Server) notify(r *http.Request, event string, payload any) {
    if s.hooks == nil || s.hooks.URL == "" {
        return
    }
    reqID := RequestID(r.Context())
    go func() {
        ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
        defer cancel()
        if err := s.hooks.Send(ctx, event, payload); err != nil {
            s.log.Warn("webhook", zap.String("event", event), zap.Error(err), zap.String("request_id", reqID))
        }
    }()
}

type issueResponse struct {
    Success            bool                    `json:"success"`
    Signature          string                  `json:"signature"`
    CertificateAddress string                  `json:"certificateAddress"`
    Certificate        certificate.Certificate `json:"certificate"`
    Message            string                  `json:"message"`
}

type revokeResponse struct {
    Success     bool                    `json:"success"`
    Signature   string                  `json:"signature"`
    Message     string                  `json:"message"`
    Certificate certificate.Certificate `json:"certificate"`
}

// verifyResponse carries both isValid and valid; clients of either envelope keep working.
type verifyResponse struct {
    Success     bool                    `json:"success"`
    Certificate certificate.Certificate `json:"certificate"`
    IsValid     bool                    `json:"isValid"`
    Valid       bool                    `json:"valid"`
    Message     string                  `json:"message"`
}

type listResponse struct {
    Success      bool                      `json:"success"`
    Count        int                       `json:"count"`
    Certificates []certificate.Certificate `json:"certificates"`
}

type healthResponse struct {
    Status           string `json:"status"`
    Timestamp        string `json:"timestamp"`
    CertificateCount *int   `json:"certificateCount,omitempty"`
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request) {
    var in certificate.IssueRequest
    if !decodeJSON(w, r, &in) { return }
    ctx, cancel := s.opContext(r)
    defer cancel()
    start := time.Now()
    res, err := s.svc.Issue(ctx, in)
    metrics.ObserveStore("issue", time.Since(start))
    if err != nil { s.fail(w, r, err, msgIssueFailed); return }
    metrics.IncIssued()
    s.notify(r, webhook.EventIssued, res.Certificate)
    writeJSON(w, http.StatusOK, issueResponse{
        Success:            true,
        Signature:          res.Signature,
        CertificateAddress: res.Address,
        Certificate:        res.Certificate,
        Message:            certificate.MsgIssued,
    })
}

func (s *Server) revoke(w http.ResponseWriter, r *http.Request) {
    var in certificate.RevokeRequest
    if !decodeJSON(w, r, &in) { return }
    ctx, cancel := s.opContext(r)
    defer cancel()
    start := time.Now()
    res, err := s.svc.Revoke(ctx, in)
    metrics.ObserveStore("revoke", time.Since(start))
    if err != nil { s.fail(w, r, err, msgRevokeFailed); return }
    metrics.IncRevoked()
    s.notify(r, webhook.EventRevoked, res.Certificate)
    writeJSON(w, http.StatusOK, revokeResponse{
        Success:     true,
        Signature:   res.Signature,
        Message:     certificate.MsgRevoked,
        Certificate: res.Certificate,
    })
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := s.opContext(r)
    defer cancel()
    start := time.Now()
    v, err := s.svc.Verify(ctx, chi.URLParam(r, "address"))
    metrics.ObserveStore("verify", time.Since(start))
    if err != nil {
        if certificate.KindOf(err) == certificate.KindNotFound { metrics.IncVerified("not_found") }
        s.fail(w, r, err, msgVerifyFailed)
        return
    }
    if v.Valid { metrics.IncVerified("valid") } else { metrics.IncVerified("revoked") }
    writeJSON(w, http.StatusOK, verifyResponse{
        Success:     true,
        Certificate: v.Certificate,
        IsValid:     v.Valid,
        Valid:       v.Valid,
        Message:     v.Message(),
    })
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := s.opContext(r)
    defer cancel()
    start := time.Now()
    list, err := s.svc.List(ctx)
    metrics.ObserveStore("list", time.Since(start))
    if err != nil { s.fail(w, r, err, msgListFailed); return }
    writeJSON(w, http.StatusOK, listResponse{Success: true, Count: len(list), Certificates: list})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
    resp := healthResponse{Status: "Backend API is running", Timestamp: time.Now().UTC().Format(time.RFC3339)}
    ctx, cancel := s.opContext(r)
    defer cancel()
    if n, err := s.svc.Count(ctx); err == nil {
        resp.CertificateCount = &n
    } else {
        s.log.Warn("health count", zap.Error(err))
    }
    writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
    type resp struct {
        Service   string `json:"service"`
        Version   string `json:"version"`
        Build     string `json:"gitCommit"`
        BuildDate string `json:"buildDate"`
    }
    writeJSON(w, http.StatusOK, resp{Service: "certd", Version: version.Version, Build: version.Build, BuildDate: version.BuildDate})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := s.opContext(r)
    defer cancel()
    if err := s.svc.Ping(ctx); err != nil { writeError(w, http.StatusServiceUnavailable, "store not ready"); return }
    w.WriteHeader(http.StatusOK)
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
    srv := &http.Server{
        Addr:              addr,
        Handler:           s.Router(),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       10 * time.Second,
        WriteTimeout:      15 * time.Second,
        IdleTimeout:       60 * time.Second,
        MaxHeaderBytes:    1 << 20,
    }
    errc := make(chan error, 1)
    go func() {
        <-ctx.Done()
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        errc <- srv.Shutdown(shutdownCtx)
    }()
    s.log.Info("listening", zap.String("addr", addr))
    if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
        return err
    }
    return <-errc
}
