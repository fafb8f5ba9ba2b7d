package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matrixise/wallet-activity/internal/activity"
	"github.com/matrixise/wallet-activity/internal/blockchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

type fakeRPC []blockchain.EndpointHealth

func (f fakeRPC) Endpoints() []blockchain.EndpointHealth { return f }

type fakeRefresh struct{ status activity.Status }

func (f fakeRefresh) State() activity.Status { return f.status }

func TestCheck(t *testing.T) {
	recent := fakeRefresh{status: activity.Status{State: activity.StateIdle, Generation: 3, LastPublished: time.Now(), Summaries: 4}}
	stale := fakeRefresh{status: activity.Status{State: activity.StateIdle, Generation: 3, LastPublished: time.Now().Add(-time.Hour)}}

	tests := []struct {
		name    string
		db      Pinger
		rpc     EndpointReporter
		refresh RefreshReporter
		want    CheckStatus
		checks  map[string]CheckStatus
	}{
		{
			name:    "all healthy",
			db:      fakeDB{},
			rpc:     fakeRPC{{URL: "a", Healthy: true}, {URL: "b", Healthy: true}},
			refresh: recent,
			want:    StatusOK,
			checks:  map[string]CheckStatus{"database": StatusOK, "rpc_endpoints": StatusOK, "refresh": StatusOK},
		},
		{
			name:   "database down",
			db:     fakeDB{err: errors.New("connection refused")},
			rpc:    fakeRPC{{URL: "a", Healthy: true}},
			want:   StatusError,
			checks: map[string]CheckStatus{"database": StatusError, "rpc_endpoints": StatusOK},
		},
		{
			name:    "database down with stale refresh",
			db:      fakeDB{err: errors.New("connection refused")},
			rpc:     fakeRPC{{URL: "a", Healthy: true}, {URL: "b"}},
			refresh: stale,
			want:    StatusError,
			checks:  map[string]CheckStatus{"database": StatusError, "rpc_endpoints": StatusDegraded, "refresh": StatusDegraded},
		},
		{
			name:   "one rpc endpoint down",
			rpc:    fakeRPC{{URL: "a", Healthy: true}, {URL: "b"}},
			want:   StatusDegraded,
			checks: map[string]CheckStatus{"rpc_endpoints": StatusDegraded},
		},
		{
			name:   "all rpc endpoints down",
			db:     fakeDB{},
			rpc:    fakeRPC{{URL: "a"}},
			want:   StatusDegraded,
			checks: map[string]CheckStatus{"database": StatusOK, "rpc_endpoints": StatusError},
		},
		{
			name:    "stale refresh",
			refresh: stale,
			want:    StatusDegraded,
			checks:  map[string]CheckStatus{"refresh": StatusDegraded},
		},
		{
			name:    "not yet published",
			refresh: fakeRefresh{status: activity.Status{State: activity.StateRefreshing}},
			want:    StatusOK,
			checks:  map[string]CheckStatus{"refresh": StatusOK},
		},
		{
			name:   "nothing configured",
			want:   StatusOK,
			checks: map[string]CheckStatus{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(tt.db, tt.rpc, tt.refresh, 5*time.Minute, nil)
			resp := c.Check(context.Background())

			assert.Equal(t, tt.want, resp.Status)
			got := make(map[string]CheckStatus, len(resp.Checks))
			for name, detail := range resp.Checks {
				got[name] = detail.Status
			}
			assert.Equal(t, tt.checks, got)
		})
	}
}

func TestHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		c := NewChecker(fakeDB{}, nil, nil, 0, nil)
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, StatusOK, resp.Status)
	})

	t.Run("unhealthy", func(t *testing.T) {
		c := NewChecker(fakeDB{err: errors.New("down")}, nil, nil, 0, nil)
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		c := NewChecker(nil, nil, nil, 0, nil)
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
