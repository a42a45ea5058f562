package integrationtests

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	bidding "bidding-ledger/internal/biddingService"
	model "bidding-ledger/internal/models"
	"bidding-ledger/internal/notifier"
	"bidding-ledger/internal/registry"
	"bidding-ledger/internal/repository"
	"bidding-ledger/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// TestEnv is a fully wired server over an in-memory ledger
type TestEnv struct {
	Router  *gin.Engine
	Repo    *repository.MemoryRepo
	Service *bidding.BiddingService
}

// SetupTestEnv seeds the ledger and wires service, notifier and router the
// way main does
func SetupTestEnv(t *testing.T, accounts []model.Account, items []model.Item) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	require.NoError(t, repository.Seed(context.Background(), repo, accounts, items))

	changes := notifier.New(repo, registry.New(), notifier.WithGapTimeout(20*time.Millisecond))
	t.Cleanup(changes.Close)

	service := bidding.NewBiddingService(repo, bidding.WithPublisher(changes))
	retry := bidding.RetryPolicy{MaxTries: 5, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond}
	return &TestEnv{
		Router:  server.SetupRouter(service, changes, retry),
		Repo:    repo,
		Service: service,
	}
}

// Accounts builds n accounts named acct0..acct(n-1) with the given balance
func Accounts(n int, balance int64) []model.Account {
	out := make([]model.Account, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Account{AccountID: fmt.Sprintf("acct%d", i), CreditBalance: balance})
	}
	return out
}

// ExecuteRequestAndParse executes an HTTP request on the given router and
// returns the decoded envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// Data returns the envelope's data object
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return data
}

// SSEEvent is one decoded server-sent event
type SSEEvent struct {
	Event string
	ID    string
	Data  map[string]any
}

// OpenStream connects to a live server's SSE endpoint and decodes events
// onto the returned channel until the stream ends
func OpenStream(t *testing.T, ctx context.Context, url string) <-chan SSEEvent {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := make(chan SSEEvent, 64)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		var ev SSEEvent
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if ev.Event != "" {
					events <- ev
				}
				ev = SSEEvent{}
			case strings.HasPrefix(line, "event:"):
				ev.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "id:"):
				ev.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
			case strings.HasPrefix(line, "data:"):
				_ = json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &ev.Data)
			}
		}
	}()
	return events
}

// NextEvent waits for the next decoded event
func NextEvent(t *testing.T, events <-chan SSEEvent) SSEEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream ended unexpectedly")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stream event")
		return SSEEvent{}
	}
}
