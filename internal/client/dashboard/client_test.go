package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/client/auth"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeAPI struct {
	*httptest.Server

	meStatus    int
	boardStatus int
	meBody      string
	// gate, when set, holds both handlers until both requests have arrived
	gate *sync.WaitGroup

	hits    atomic.Int32
	mu      sync.Mutex
	headers []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{meStatus: http.StatusOK, boardStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		if api.meStatus != http.StatusOK {
			http.Error(w, `{"status":"error","error":"nope"}`, api.meStatus)
			return
		}
		body := api.meBody
		if body == "" {
			body = `{"user":{"_id":"1","clerkId":"user_1","username":"neo","rating":1800,"matches":["m1"],"submissions":[],"avatarUrl":"https://img/neo.png","createdAt":"2025-01-02T03:04:05Z"}}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/api/users/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		if api.boardStatus != http.StatusOK {
			w.WriteHeader(api.boardStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"leaderboard": []model.LeaderboardEntry{
				{UserID: "3", Username: "zed", Rating: 2100, Rank: 1},
				{UserID: "1", Username: "neo", Rating: 1800, Rank: 2},
				{UserID: "2", Username: "amy", Rating: 1900, Rank: 3},
			},
		})
	})
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) record(r *http.Request) {
	a.hits.Add(1)
	a.mu.Lock()
	a.headers = append(a.headers, r.Header.Get("Authorization"))
	a.mu.Unlock()
	if a.gate != nil {
		a.gate.Done()
		a.gate.Wait()
	}
}

func newTestClient(api *fakeAPI) *Client {
	return NewClient(api.URL, WithClock(func() time.Time { return fixedNow }))
}

func requireFailure(t *testing.T, res Result) Failure {
	t.Helper()
	f, ok := res.(Failure)
	require.True(t, ok, "expected Failure, got %T", res)

	assert.Equal(t, "Error", f.Profile.Username)
	assert.Equal(t, 0, f.Profile.Rating)
	assert.Equal(t, []string{}, f.Profile.Matches)
	assert.Equal(t, []model.Submission{}, f.Profile.Submissions)
	assert.Equal(t, ErrorAvatarURL, f.Profile.AvatarURL)
	assert.Equal(t, fixedNow, f.Profile.CreatedAt)
	assert.NotNil(t, f.Leaderboard)
	assert.Empty(t, f.Leaderboard)
	assert.NotEmpty(t, f.Message())
	return f
}

func TestFetchSuccess(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(api)

	res := c.Fetch(context.Background(), auth.StaticToken("tok-1"))

	s, ok := res.(Success)
	require.True(t, ok, "expected Success, got %T", res)
	assert.Equal(t, "neo", s.Profile.Username)
	assert.Equal(t, 1800, s.Profile.Rating)
	assert.Equal(t, []string{"m1"}, s.Profile.Matches)

	// server order is kept even though ratings are not sorted
	require.Len(t, s.Leaderboard, 3)
	assert.Equal(t, []string{"zed", "neo", "amy"}, []string{
		s.Leaderboard[0].Username, s.Leaderboard[1].Username, s.Leaderboard[2].Username,
	})

	assert.Equal(t, int32(2), api.hits.Load())
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-1"}, api.headers)
}

func TestFetchIssuesRequestsConcurrently(t *testing.T) {
	api := newFakeAPI(t)
	api.gate = &sync.WaitGroup{}
	api.gate.Add(2)
	c := newTestClient(api)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// each handler blocks until the other request arrives
	res := c.Fetch(ctx, auth.StaticToken("tok"))
	_, ok := res.(Success)
	assert.True(t, ok)
}

func TestFetchLeaderboardFailureDiscardsProfile(t *testing.T) {
	api := newFakeAPI(t)
	api.boardStatus = http.StatusInternalServerError
	c := newTestClient(api)

	f := requireFailure(t, c.Fetch(context.Background(), auth.StaticToken("tok")))

	assert.ErrorIs(t, f.Err, ErrRequestFailed)
	assert.Equal(t, "Failed to fetch all dashboard data.", f.Message())
	assert.Equal(t, "failed to fetch all dashboard data", f.Err.Error())
	var se *StatusError
	require.ErrorAs(t, f.Err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	// both requests still settled
	assert.Equal(t, int32(2), api.hits.Load())
}

func TestFetchProfileFailure(t *testing.T) {
	api := newFakeAPI(t)
	api.meStatus = http.StatusUnauthorized
	c := newTestClient(api)

	f := requireFailure(t, c.Fetch(context.Background(), auth.StaticToken("tok")))
	assert.ErrorIs(t, f.Err, ErrRequestFailed)
	assert.Equal(t, RequestFailedMessage, f.Message())
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "Failed to fetch all dashboard data.", Failure{}.Message())
	assert.Equal(t, RequestFailedMessage, newFailure(&StatusError{Path: mePath, Code: 500}, fixedNow).Message())
	assert.Equal(t, "boom", newFailure(errors.New("boom"), fixedNow).Message())
}

func TestFetchTokenFailureSkipsNetwork(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(api)

	tokens := auth.TokenFunc(func(context.Context) (string, error) {
		return "", errors.New("session expired")
	})
	f := requireFailure(t, c.Fetch(context.Background(), tokens))

	assert.ErrorIs(t, f.Err, ErrTokenRetrieval)
	assert.Contains(t, f.Message(), "session expired")
	assert.Equal(t, int32(0), api.hits.Load())
}

func TestFetchNilTokenSource(t *testing.T) {
	api := newFakeAPI(t)
	f := requireFailure(t, newTestClient(api).Fetch(context.Background(), nil))
	assert.ErrorIs(t, f.Err, ErrTokenRetrieval)
}

func TestFetchNetworkFailure(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(api)
	api.Close()

	f := requireFailure(t, c.Fetch(context.Background(), auth.StaticToken("tok")))
	assert.ErrorIs(t, f.Err, ErrNetwork)
}

func TestFetchMalformedBody(t *testing.T) {
	api := newFakeAPI(t)
	api.meBody = `{"user":`
	f := requireFailure(t, newTestClient(api).Fetch(context.Background(), auth.StaticToken("tok")))
	assert.ErrorIs(t, f.Err, ErrNetwork)
}

func TestFetchMissingUser(t *testing.T) {
	api := newFakeAPI(t)
	api.meBody = `{"user":null}`
	f := requireFailure(t, newTestClient(api).Fetch(context.Background(), auth.StaticToken("tok")))
	assert.ErrorIs(t, f.Err, ErrNetwork)
}

func TestFetchHonoursCancellation(t *testing.T) {
	api := newFakeAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := requireFailure(t, newTestClient(api).Fetch(ctx, auth.StaticToken("tok")))
	assert.ErrorIs(t, f.Err, context.Canceled)
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:4000", NewClient("").baseURL)
}
