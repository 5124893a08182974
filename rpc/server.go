// Package rpc exposes the lockup engines over HTTP. Member operations carry
// the caller address in the request body; administrative operations are
// authenticated with an HMAC-signed JWT whose subject is the admin address.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"lockvault/native/lockup"
	"lockvault/observability/metrics"
)

type contextKey string

const (
	requestIDKey   contextKey = "requestID"
	adminCallerKey contextKey = "adminCaller"
)

var (
	errRateLimited  = errors.New("rate limit exceeded")
	errUnauthorized = errors.New("unauthorized")
	errNoZapper     = errors.New("zapper rotation not configured")
)

// Server routes HTTP traffic to the configured pool engines. Either engine may
// be nil, in which case its routes answer 404.
type Server struct {
	log       *slog.Logger
	split     *lockup.Engine
	credit    *lockup.CreditEngine
	heightFn  func() uint64
	limiter   *rate.Limiter
	jwtSecret []byte
	metrics   *metrics.LockupMetrics
	zapperFn  func(addr [20]byte) lockup.Zapper
}

// Option customises server construction.
type Option func(*Server)

// WithSplitEngine attaches the LP-splitting pool.
func WithSplitEngine(engine *lockup.Engine) Option {
	return func(s *Server) { s.split = engine }
}

// WithCreditEngine attaches the credit-burning pool.
func WithCreditEngine(engine *lockup.CreditEngine) Option {
	return func(s *Server) { s.credit = engine }
}

// WithRateLimit bounds request throughput across all routes.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) { s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithAdminSecret sets the HMAC secret verifying admin tokens. An empty secret
// disables the admin surface.
func WithAdminSecret(secret []byte) Option {
	return func(s *Server) { s.jwtSecret = secret }
}

// WithMetrics attaches the Prometheus instrument set.
func WithMetrics(m *metrics.LockupMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithZapperFactory supplies the constructor used when an admin rotates the
// split pool's zapper to a new address.
func WithZapperFactory(fn func(addr [20]byte) lockup.Zapper) Option {
	return func(s *Server) { s.zapperFn = fn }
}

// NewServer builds a server. heightFn supplies the current block height; it is
// consulted before every engine call so lock arithmetic always sees fresh time.
func NewServer(log *slog.Logger, heightFn func() uint64, opts ...Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	if heightFn == nil {
		heightFn = func() uint64 { return 0 }
	}
	s := &Server{log: log, heightFn: heightFn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	r.Use(s.rateLimit)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1/lockup", func(r chi.Router) {
		r.Get("/cap", s.handleLockupCap)
		r.Get("/splits", s.handleLockupSplits)
		r.Get("/accounts/{address}", s.handleLockupAccount)
		r.Post("/deposit", s.handleLockupDeposit)
		r.Post("/deposit-stable", s.handleLockupDepositStable)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/splits", s.handleLockupConfigureSplit)
			r.Post("/schedule", s.handleLockupSchedule)
			r.Post("/cap", s.handleLockupSetCap)
			r.Post("/cap-bps", s.handleLockupSetCapBps)
			r.Post("/treasury", s.handleLockupSetTreasury)
			r.Post("/zapper", s.handleLockupRotateZapper)
			r.Post("/pause", s.handleLockupPause)
			r.Post("/resume", s.handleLockupResume)
			r.Post("/recover", s.handleLockupRecover)
		})
	})

	r.Route("/v1/creditpool", func(r chi.Router) {
		r.Get("/cap", s.handleCreditCap)
		r.Get("/accounts/{address}", s.handleCreditAccount)
		r.Post("/deposit", s.handleCreditDeposit)
		r.Post("/withdraw", s.handleCreditWithdraw)
		r.Post("/withdraw-all", s.handleCreditWithdrawAll)
		r.Post("/transfer", s.handleCreditTransfer)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/schedule", s.handleCreditSchedule)
			r.Post("/cap", s.handleCreditSetCap)
			r.Post("/cap-bps", s.handleCreditSetCapBps)
			r.Post("/treasury", s.handleCreditSetTreasury)
			r.Post("/unlock", s.handleCreditSetUnlock)
			r.Post("/pause", s.handleCreditPause)
			r.Post("/resume", s.handleCreditResume)
			r.Post("/recover", s.handleCreditRecover)
		})
	})

	return r
}

// Serve blocks until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		id, _ := r.Context().Value(requestIDKey).(string)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestId", id,
		)
	})
}

// requireAdmin verifies the bearer token and resolves the admin address from
// its subject claim.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.jwtSecret) == 0 {
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.jwtSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		caller, err := parseAddress("subject", claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminCallerKey, caller)))
	})
}

func adminCaller(r *http.Request) ([20]byte, bool) {
	caller, ok := r.Context().Value(adminCallerKey).([20]byte)
	return caller, ok
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResult{Status: "ok"})
}

// syncHeight pushes the current chain height into both engines. Engines
// tolerate being nil here.
func (s *Server) syncHeight() uint64 {
	height := s.heightFn()
	s.split.SetBlockHeight(height)
	s.credit.SetBlockHeight(height)
	return height
}

// The vault gauges are refreshed after every call that moves vault custody.

func (s *Server) observeSplitVault() {
	if s.metrics == nil || s.split == nil {
		return
	}
	if held, err := s.split.VaultHeld(); err == nil {
		f, _ := new(big.Float).SetInt(held).Float64()
		s.metrics.SetVaultHeld(splitPoolLabel, f)
	}
}

func (s *Server) observeCreditVault() {
	if s.metrics == nil || s.credit == nil {
		return
	}
	if held, err := s.credit.VaultHeld(); err == nil {
		f, _ := new(big.Float).SetInt(held).Float64()
		s.metrics.SetVaultHeld(creditPoolLabel, f)
	}
}

func statusForEngineError(err error) int {
	switch {
	case errors.Is(err, lockup.ErrUnauthorized), errors.Is(err, lockup.ErrNotAllowlisted):
		return http.StatusForbidden
	case errors.Is(err, lockup.ErrInsufficientLocked),
		errors.Is(err, lockup.ErrStillLocked),
		errors.Is(err, lockup.ErrDepositCapExceeded),
		errors.Is(err, lockup.ErrUserCapExceeded),
		errors.Is(err, lockup.ErrSplitBound),
		errors.Is(err, lockup.ErrSplitMismatch),
		errors.Is(err, lockup.ErrNotStarted),
		errors.Is(err, lockup.ErrAlreadyStarted),
		errors.Is(err, lockup.ErrManagedToken),
		errors.Is(err, lockup.ErrSwapOutputBelowMin):
		return http.StatusConflict
	case errors.Is(err, lockup.ErrInvalidAmount),
		errors.Is(err, lockup.ErrInvalidSplit),
		errors.Is(err, lockup.ErrSplitNotConfigured),
		errors.Is(err, lockup.ErrZeroAddress),
		errors.Is(err, lockup.ErrSelfTransfer):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
