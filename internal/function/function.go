// Package function exposes certd as a single serverless-style HTTP entry point.
//
// Each function instance builds its own service on first use. With the default memory
// store, instances do not share certificates: a certificate issued through one instance
// is invisible to another. Set CERTD_STORE to postgres or sqlite to share state.
package function

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vaheed/certd/internal/api"
	"github.com/vaheed/certd/internal/certificate"
	"github.com/vaheed/certd/internal/config"
	"github.com/vaheed/certd/internal/logging"
	"github.com/vaheed/certd/internal/models"
	"github.com/vaheed/certd/internal/webhook"
)

// Handler lazily builds the router on the first request and reuses it afterwards. A
// failed build is retried on the next request.
type Handler struct {
	cfg *config.Config
	log *zap.Logger

	mu      sync.Mutex
	handler http.Handler
}

func New(cfg *config.Config, l *zap.Logger) *Handler {
	return &Handler{cfg: cfg, log: l}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	next, err := h.get(r.Context())
	if err != nil {
		h.log.Error("init", zap.Error(err))
		writeBody(w, http.StatusServiceUnavailable, `{"error":"service unavailable"}`)
		return
	}
	next.ServeHTTP(w, r)
}

func (h *Handler) get(ctx context.Context) (http.Handler, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handler != nil {
		return h.handler, nil
	}
	next, err := Build(ctx, h.cfg, h.log)
	if err != nil {
		return nil, err
	}
	h.handler = next
	return next, nil
}

func writeBody(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

// Build assembles the full HTTP handler for cfg.
func Build(ctx context.Context, cfg *config.Config, l *zap.Logger) (http.Handler, error) {
	store, err := models.Open(context.WithoutCancel(ctx), cfg)
	if err != nil {
		return nil, err
	}
	svc := certificate.NewService(store,
		certificate.WithIssuerCheck(cfg.EnforceIssuer),
		certificate.WithLogger(l),
	)
	hooks := &webhook.Client{URL: cfg.HookURL, Secret: cfg.HookSecret, HTTP: &http.Client{Timeout: 5 * time.Second}}
	timeout := time.Duration(cfg.DBTimeoutMS) * time.Millisecond
	return api.New(l, svc, hooks, timeout).Router(), nil
}

var (
	defaultOnce sync.Once
	defaultH    http.Handler
)

// Handle is the function entry point. Configuration comes from the environment of the
// instance.
func Handle(w http.ResponseWriter, r *http.Request) {
	defaultOnce.Do(func() {
		lg := logging.New("function")
		cfg, err := config.Parse()
		if err != nil {
			lg.Error("config", zap.Error(err))
			defaultH = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeBody(w, http.StatusInternalServerError, `{"error":"service misconfigured"}`)
			})
			return
		}
		defaultH = New(cfg, lg)
	})
	defaultH.ServeHTTP(w, r)
}
