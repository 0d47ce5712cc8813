package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/clips-backend/api/responses"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/clips-backend/pkg/redis"
)

// IdempotencyKeyHeader carries the client supplied replay key.
const IdempotencyKeyHeader = "Idempotency-Key"

const (
	replayTTL      = 24 * time.Hour
	spendReplayTTL = 7 * 24 * time.Hour
	inFlightTTL    = 30 * time.Second
)

// idempotentRoute is a mutating route whose response is stored for replay.
// A "*" segment in path matches any single segment.
type idempotentRoute struct {
	method string
	path   string
	ttl    time.Duration
}

// Routes that move money or spend clips keep their replay window for a week.
var idempotentRoutes = []idempotentRoute{
	{http.MethodPost, "/api/v1/clips/plans/*/request", replayTTL},
	{http.MethodPost, "/api/admin/v1/clips/plans", replayTTL},
	{http.MethodPost, "/api/admin/v1/clips/assignments", replayTTL},
	{http.MethodPost, "/api/admin/v1/clips/renewals", spendReplayTTL},
	{http.MethodPost, "/api/admin/v1/clips/refills", spendReplayTTL},
	{http.MethodPost, "/api/v1/projects/*/apply", spendReplayTTL},
	{http.MethodPatch, "/api/admin/v1/clips/purchases/*/payment", spendReplayTTL},
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency stores the first non-5xx response for each (caller, route,
// Idempotency-Key) and replays it for repeats with the same body. A repeat
// that arrives while the first request is still running is rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, requestPath(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyKeyHeader+" header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body could not be read"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(callerScope(r), clientKey)
			fingerprint := hashBody(body)

			prior, err := lookup(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup failed"))
				return
			}
			if prior != nil {
				if prior.RequestHash != fingerprint {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				prior.replay(w)
				return
			}

			lockKey := key + ":inflight"
			acquired, err := store.SetNX(ctx, lockKey, "1", inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency reservation failed"))
				return
			}
			if !acquired {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress"))
				return
			}
			defer func() {
				if err := store.Del(context.WithoutCancel(ctx), lockKey); err != nil && logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "idempotency.release_failed")
				}
			}()

			capture := &replayRecorder{statusRecorder: &statusRecorder{ResponseWriter: w}}
			next.ServeHTTP(capture, r)

			status := capture.Status()
			if status >= http.StatusInternalServerError {
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				RequestHash: fingerprint,
			})
			if err == nil {
				_, err = store.SetNX(context.WithoutCancel(ctx), key, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

func lookup(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// callerScope keeps keys from different callers and routes apart.
func callerScope(r *http.Request) string {
	p, _ := PrincipalFromContext(r.Context())
	return strings.Join([]string{p.UserID.String(), string(p.Role), r.Method, requestPath(r)}, "|")
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// requestPath is used instead of the chi route pattern because group
// middleware runs before the subrouter has resolved the full pattern.
func requestPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	if path := r.URL.Path; len(path) > 1 {
		return strings.TrimSuffix(path, "/")
	}
	return r.URL.Path
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, route := range idempotentRoutes {
		if route.method == method && pathMatches(route.path, path) {
			return route.ttl, true
		}
	}
	return 0, false
}

func pathMatches(pattern, path string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, segment := range want {
		if segment != "*" && segment != got[i] {
			return false
		}
	}
	return true
}

type replayRecorder struct {
	*statusRecorder
	body bytes.Buffer
}

func (r *replayRecorder) Write(b []byte) (int, error) {
	n, err := r.statusRecorder.Write(b)
	r.body.Write(b[:n])
	return n, err
}
