package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/ratelimit/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/ratelimit/store/bucket"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/testutil"
)

var (
	alice = domain.MustParseAddress("0x8a00000000000000000000000000000000000001")
	bob   = domain.MustParseAddress("0x8a00000000000000000000000000000000000002")
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, models.Limit) (*models.Result, error) {
	return nil, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, method string, caller domain.Address) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/v1/properties/1/listing", nil)
	req = testutil.WithCaller(req, caller)
	return testutil.DoRequest(h, req)
}

func TestPerCaller(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	limits := map[models.Class]models.Limit{
		models.ClassWrite: {Requests: 1, Window: time.Minute},
		models.ClassRead:  {Requests: 5, Window: time.Minute},
	}
	h := New(bucket.NewInMemoryBucketStore(), limits, logger).PerCaller(okHandler())

	rr := serve(h, http.MethodPut, alice)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = serve(h, http.MethodPut, alice)
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limit_exceeded")
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads and other callers have their own windows
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, alice).Code)
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodPut, bob).Code)
}

func TestPerCallerFailsOpen(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	limits := map[models.Class]models.Limit{models.ClassWrite: {Requests: 1, Window: time.Minute}}
	h := New(failingStore{}, limits, logger).PerCaller(okHandler())

	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodPost, alice).Code)
}

func TestPerCallerDisabled(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	limits := map[models.Class]models.Limit{models.ClassWrite: {Requests: 1, Window: time.Minute}}
	h := New(bucket.NewInMemoryBucketStore(), limits, logger, WithDisabled(true)).PerCaller(okHandler())

	for range 3 {
		assert.Equal(t, http.StatusNoContent, serve(h, http.MethodPost, alice).Code)
	}
}
