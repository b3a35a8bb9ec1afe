package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/digikart/digikart-backend/api/responses"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
	"github.com/digikart/digikart-backend/pkg/redis"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	replayHeader         = "Idempotency-Replayed"
	inFlightSentinel     = "__in_flight__"
	inFlightTTL          = 30 * time.Second
	defaultIdempotentTTL = 24 * time.Hour
	// Payment confirmations keep a longer replay window, gateways retry for
	// days and a double credit is worse than a stale 200.
	criticalIdempotentTTL = 7 * 24 * time.Hour
)

type idempotencyRule struct {
	method string
	match  func(path string) bool
	ttl    time.Duration
}

func matchExact(want string) func(string) bool {
	return func(path string) bool { return path == want }
}

func matchPrefixSuffix(prefix, suffix string) func(string) bool {
	return func(path string) bool {
		return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
	}
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, match: matchExact("/api/v1/checkout"), ttl: defaultIdempotentTTL},
	{method: http.MethodPost, match: matchPrefixSuffix("/api/v1/checkout/", "/payment-order"), ttl: defaultIdempotentTTL},
	{method: http.MethodPost, match: matchPrefixSuffix("/api/v1/checkout/", "/verify"), ttl: criticalIdempotentTTL},
	{method: http.MethodPost, match: matchPrefixSuffix("/api/v1/checkout/", "/cancel"), ttl: defaultIdempotentTTL},
	{method: http.MethodPost, match: matchPrefixSuffix("/api/v1/checkout/", "/payment-failed"), ttl: defaultIdempotentTTL},
	{method: http.MethodPost, match: matchPrefixSuffix("/api/v1/checkout/", "/retry"), ttl: defaultIdempotentTTL},
	{method: http.MethodPost, match: matchPrefixSuffix("/api/v1/orders/", "/coupon"), ttl: defaultIdempotentTTL},
	{method: http.MethodPost, match: matchExact("/api/v1/wallet/topup"), ttl: defaultIdempotentTTL},
	{method: http.MethodPost, match: matchExact("/api/v1/wallet/topup/verify"), ttl: criticalIdempotentTTL},
}

// ruleFor matches on the request path rather than the chi route pattern:
// inside a nested router the pattern is only partially resolved at
// middleware time, while the path is final either way.
func ruleFor(method, path string) (idempotencyRule, bool) {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.match(path) {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers"`
	RequestHash string            `json:"request_hash"`
}

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *responseCapture) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

// Idempotency caches responses for mutating payment routes keyed by the
// client-supplied Idempotency-Key. A replay with the same key returns the
// stored response; the same key with a different request body is rejected.
func Idempotency(store redis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := ruleFor(r.Method, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if key == "" {
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.New(pkgerrors.CodeValidation, "missing idempotency key").
						WithDetails(map[string]string{idempotencyHeader: "header is required on this route"}))
				return
			}

			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(rawBody))

			customerID := CustomerIDFromContext(r.Context())
			storeKey := store.IdempotencyKey(customerID.String(), key)
			requestHash := hashRequest(r.Method, r.URL.Path, rawBody)

			stored, err := store.Get(r.Context(), storeKey)
			switch {
			case err == nil && stored == inFlightSentinel:
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in flight").
						WithDetails(map[string]string{idempotencyHeader: key}))
				return
			case err == nil:
				replayStored(r, w, logg, stored, requestHash, key)
				return
			case !redis.IsNil(err):
				// Redis being down must not block payments. Fall through and
				// let the database-level idempotency catch true replays.
				logg.Error(r.Context(), "idempotency cache read failed", err)
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := store.SetNX(r.Context(), storeKey, inFlightSentinel, inFlightTTL)
			if err != nil {
				logg.Error(r.Context(), "idempotency cache reserve failed", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in flight").
						WithDetails(map[string]string{idempotencyHeader: key}))
				return
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			if capture.status >= http.StatusInternalServerError {
				// Do not pin a server failure to the key; the client may retry.
				if delErr := store.Del(r.Context(), storeKey); delErr != nil {
					logg.Error(r.Context(), "idempotency cache release failed", delErr)
				}
				return
			}

			record := idempotencyRecord{
				Status:      capture.status,
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				Headers:     map[string]string{"Content-Type": capture.Header().Get("Content-Type")},
				RequestHash: requestHash,
			}
			encoded, err := json.Marshal(record)
			if err != nil {
				logg.Error(r.Context(), "idempotency record encode failed", err)
				return
			}
			if err := store.Set(r.Context(), storeKey, string(encoded), rule.ttl); err != nil {
				logg.Error(r.Context(), "idempotency cache store failed", err)
			}
		})
	}
}

func replayStored(r *http.Request, w http.ResponseWriter, logg *logger.Logger, stored, requestHash, key string) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(r.Context(), w, logg,
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), w, logg,
			pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request").
				WithDetails(map[string]string{idempotencyHeader: key}))
		return
	}

	body, err := base64.StdEncoding.DecodeString(record.Body)
	if err != nil {
		responses.WriteError(r.Context(), w, logg,
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding idempotency record body"))
		return
	}

	for name, value := range record.Headers {
		if value != "" {
			w.Header().Set(name, value)
		}
	}
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(body)
}

func hashRequest(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{0})
	sum.Write([]byte(path))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
