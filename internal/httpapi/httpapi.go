package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"savdo/backend/internal/cart"
	"savdo/backend/internal/domain"
	"savdo/backend/internal/service"
	"savdo/backend/internal/store"
	"savdo/backend/internal/xid"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "httpapi").Logger()

type Options struct {
	AllowedOrigin  string
	RateLimitRPS   float64
	RateLimitBurst int
	// Location is used to print receipt timestamps in exports.
	Location *time.Location
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	gate          Gate
	allowedOrigin string
	location      *time.Location
	loginLimiter  *keyedLimiter
	apiLimiter    *keyedLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, gate Gate, opts Options) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 10
	}
	if opts.RateLimitBurst < 1 {
		opts.RateLimitBurst = 20
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &API{
		service:       svc,
		auth:          auth,
		gate:          gate,
		allowedOrigin: opts.AllowedOrigin,
		location:      opts.Location,
		loginLimiter:  newKeyedLimiter(rate.Every(12*time.Second), 5),
		apiLimiter:    newKeyedLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	bucket := time.Now().UTC().Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken accepts the current or previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(currentBucket))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(prevBucket)))
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/profile", a.requireAuth(a.handleProfile, domain.RoleOwner))
	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, domain.RoleOwner))
	mux.HandleFunc("/api/v1/products/search", a.requireAuth(a.handleProductSearch, domain.RoleOwner))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, domain.RoleOwner))

	mux.HandleFunc("/api/v1/cart", a.requireAuth(a.handleCart, domain.RoleOwner))
	mux.HandleFunc("/api/v1/cart/slots/", a.requireAuth(a.handleCartSlots, domain.RoleOwner))
	mux.HandleFunc("/api/v1/cart/items/", a.requireAuth(a.handleCartItems, domain.RoleOwner))
	mux.HandleFunc("/api/v1/cart/checkout", a.requireAuth(a.handleCheckout, domain.RoleOwner))

	mux.HandleFunc("/api/v1/receipts", a.requireAuth(a.handleReceipts, domain.RoleOwner))
	mux.HandleFunc("/api/v1/receipts/export", a.requireAuth(a.handleReceiptExport, domain.RoleOwner))
	mux.HandleFunc("/api/v1/receipts/", a.requireAuth(a.handleReceiptActions, domain.RoleOwner))
	mux.HandleFunc("/api/v1/returns", a.requireAuth(a.handleReturns, domain.RoleOwner))
	mux.HandleFunc("/api/v1/dashboard", a.requireAuth(a.handleDashboard, domain.RoleOwner))
	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, domain.RoleOwner))

	mux.HandleFunc("/api/v1/admin/accounts", a.requireAuth(a.handleAdminAccounts, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/admin/profiles/", a.requireAuth(a.handleAdminProfileActions, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

// requireAuth parses the bearer token, checks the role, runs the gate and
// applies the per-tenant rate limit before the handler sees the request.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		if a.gate != nil {
			if err := a.gate.Check(r.Context(), actor); err != nil {
				writeServiceError(w, err)
				return
			}
		}

		if !a.apiLimiter.Allow(limiterKey(actor)) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many requests"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func limiterKey(actor domain.Actor) string {
	if actor.ProfileID > 0 {
		return "tenant:" + strconv.FormatInt(actor.ProfileID, 10)
	}
	return "user:" + actor.Username
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

// csrfExemptPaths lists paths that are called without a prior CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces CSRF token validation for state-changing methods.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > 64 {
			requestID = xid.New("req")
		}

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(rec, r)
		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(startedAt)).
			Msg("request")
	})
}

// decodeJSON rejects unknown fields. An empty body leaves dest untouched when
// allowEmpty is set.
func decodeJSON(r *http.Request, dest any, allowEmpty bool) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// pathID parses the first path segment after prefix and returns the rest.
func pathID(path string, prefix string) (int64, string, error) {
	tail := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	head, rest, _ := strings.Cut(tail, "/")
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil || id < 1 {
		return 0, "", fmt.Errorf("%w: invalid id %q", store.ErrInvalidInput, head)
	}
	return id, rest, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, cart.ErrInvalidSlot),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountInactive), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrTenantRequired), errors.Is(err, service.ErrAdminRequired):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateName),
		errors.Is(err, store.ErrDuplicateQRCode),
		errors.Is(err, store.ErrDuplicateUser):
		return http.StatusConflict
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(status int, err error) string {
	switch {
	case errors.Is(err, cart.ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, cart.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, cart.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, store.ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, store.ErrDuplicateQRCode):
		return "duplicate_qrcode"
	case errors.Is(err, store.ErrDuplicateUser):
		return "duplicate_user"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, cart.ErrLineNotFound):
		return "not_found"
	case errors.Is(err, ErrPaymentRequired):
		return "payment_required"
	case errors.Is(err, store.ErrStoreUnavailable):
		return "store_unavailable"
	}
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the cause of 5xx responses from clients and logs it instead.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
		msg = "internal server error"
		if status == http.StatusServiceUnavailable {
			msg = "service temporarily unavailable"
		}
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
		"code":  errorCode(status, err),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
