package httptransport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"treasure-raffle/internal/app/admin"
	"treasure-raffle/internal/app/hunt"
	"treasure-raffle/internal/app/raffle"
	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/commitstore"
	"treasure-raffle/internal/poller"
	"treasure-raffle/internal/reconcile"
	"treasure-raffle/internal/stream"
	"treasure-raffle/internal/testutil"
	"treasure-raffle/internal/txflow"

	"github.com/ethereum/go-ethereum/common"
)

const testAdminKey = "admin-secret"

type testEnv struct {
	chain  *testutil.FakeChain
	wallet *testutil.FakeWallet
	poller *poller.Poller
	router http.Handler
}

func newTestEnv(t *testing.T, asAdmin bool) *testEnv {
	t.Helper()
	fc := testutil.NewFakeChain()
	fw := testutil.NewFakeWallet(fc)
	now := time.Now()
	fc.AddHunt(1, chain.HuntInfo{
		GridWidth:     5,
		GridHeight:    5,
		TreasureCount: 3,
		StartTime:     now.Add(-time.Hour),
		EndTime:       now.Add(time.Hour),
		ClaimDeadline: now.Add(48 * time.Hour),
		State:         chain.HuntActive,
	}, 7, 12, 20)
	fc.Update(func(c *testutil.FakeChain) { c.Keys[fw.Address()] = 2 })

	p, err := poller.New(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("poller: %v", err)
	}
	t.Cleanup(func() { _ = p.Stop() })
	hub := stream.NewHub(50)
	t.Cleanup(hub.Close)

	reader := chain.NewReader(fc, testutil.HuntContract, testutil.RaffleContract)
	calls := chain.NewCalls(testutil.HuntContract, testutil.RaffleContract)
	cache := commitstore.NewCache(commitstore.NewMemory())
	adminAddr := common.HexToAddress("0x14d5aa304Af9c1aeFf1F37375f85bA0cbFb6C104")
	if asAdmin {
		adminAddr = fw.Address()
	}

	hunts := hunt.NewService(hunt.Deps{
		Reader:     reader,
		Calls:      calls,
		Commits:    cache,
		Reconciler: reconcile.NewReconciler(cache, 10*time.Minute),
		Runner:     txflow.NewRunner("hunt", fw),
		Hub:        hub,
		Poller:     p,
	})
	raffles := raffle.NewService(reader, calls, txflow.NewRunner("raffle", fw), raffle.Config{DrawFrom: 5, DrawTo: 13, DrawMin: 8})
	admins := admin.NewService(reader, calls, txflow.NewRunner("admin", fw), adminAddr)

	return &testEnv{
		chain:  fc,
		wallet: fw,
		poller: p,
		router: NewRouter(Deps{Hunts: hunts, Raffles: raffles, Admin: admins, Hub: hub, AdminAPIKey: testAdminKey}),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body.Error
}

func TestBoardCommitRoundTrip(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/hunts/1/squares/7/commit", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("commit status=%d body=%s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/hunts/1/board", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("board status=%d body=%s", w.Code, w.Body.String())
	}
	var board hunt.BoardResponse
	if err := json.Unmarshal(w.Body.Bytes(), &board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if len(board.OwnSquares) != 1 || board.OwnSquares[0] != 7 {
		t.Fatalf("own squares = %v, want [7]", board.OwnSquares)
	}
	if board.KeyBalance != 1 {
		t.Fatalf("key balance = %d, want 1", board.KeyBalance)
	}
	if len(board.Squares) != 25 {
		t.Fatalf("squares = %d, want 25", len(board.Squares))
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, false)
	other := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	env.chain.Reserve(1, 3, other)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad hunt id", http.MethodGet, "/api/hunts/abc/board", nil, http.StatusBadRequest, "invalid_hunt_id"},
		{"out of range", http.MethodPost, "/api/hunts/1/squares/25/commit", nil, http.StatusBadRequest, "square_out_of_range"},
		{"taken square", http.MethodPost, "/api/hunts/1/squares/3/commit", nil, http.StatusConflict, "square_not_committable"},
		{"nothing to reveal", http.MethodPost, "/api/hunts/1/reveal-all", nil, http.StatusConflict, "nothing_to_reveal"},
		{"key amount", http.MethodPost, "/api/keys", map[string]any{"mon": 0}, http.StatusBadRequest, "invalid_key_amount"},
		{"bad json", http.MethodPost, "/api/keys", "nope", http.StatusBadRequest, "invalid_json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body, nil)
			if w.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", w.Code, tt.status, w.Body.String())
			}
			if got := errorCode(t, w); got != tt.code {
				t.Fatalf("code=%q want %q", got, tt.code)
			}
		})
	}
}

func TestBoardUnavailableIsLoading(t *testing.T) {
	env := newTestEnv(t, false)
	env.chain.Update(func(c *testutil.FakeChain) { c.FailMethods["getReservedSquares"] = errors.New("rpc down") })

	w := env.do(t, http.MethodGet, "/api/hunts/1/board", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "loading" {
		t.Fatalf("code=%q want loading", got)
	}
}

func TestSigningDeclinedReportsFlow(t *testing.T) {
	env := newTestEnv(t, false)
	env.wallet.Set(func(w *testutil.FakeWallet) { w.DeclineSign = true })

	w := env.do(t, http.MethodPost, "/api/hunts/1/squares/7/commit", nil, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/flows", nil, nil)
	var flows map[string]hunt.FlowResponse
	if err := json.Unmarshal(w.Body.Bytes(), &flows); err != nil {
		t.Fatalf("decode flows: %v", err)
	}
	got := flows["hunt"]
	if got.State != string(txflow.StateError) || got.Kind != "signing_declined" || got.Error != txflow.FailureMessage {
		t.Fatalf("hunt flow = %+v", got)
	}
	if flows["raffle"].State != string(txflow.StateIdle) {
		t.Fatalf("raffle flow = %+v, want idle", flows["raffle"])
	}
}

func TestAdminRoutes(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		env := newTestEnv(t, true)
		w := env.do(t, http.MethodGet, "/api/admin/pending", nil, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status=%d", w.Code)
		}
	})
	t.Run("wallet is not admin", func(t *testing.T) {
		env := newTestEnv(t, false)
		w := env.do(t, http.MethodGet, "/api/admin/pending", nil, map[string]string{"X-Admin-Key": testAdminKey})
		if w.Code != http.StatusForbidden {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		if got := errorCode(t, w); got != "not_admin" {
			t.Fatalf("code=%q", got)
		}
	})
	t.Run("admin", func(t *testing.T) {
		env := newTestEnv(t, true)
		auth := map[string]string{"Authorization": "Bearer " + testAdminKey}
		w := env.do(t, http.MethodGet, "/api/admin/pending", nil, auth)
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		var pending admin.PendingResponse
		if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
			t.Fatalf("decode pending: %v", err)
		}
		if len(pending.Hunts) != 0 || len(pending.Raffles) != 0 {
			t.Fatalf("pending = %+v, want empty", pending)
		}

		w = env.do(t, http.MethodGet, "/api/admin/debug/vars", nil, auth)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "sse_connections_total") {
			t.Fatalf("debug vars status=%d", w.Code)
		}
	})
}

func TestWalletReportsAdmin(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodGet, "/api/wallet", nil, nil)
	var body struct {
		Address string `json:"address"`
		Admin   bool   `json:"admin"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode wallet: %v", err)
	}
	if body.Address != env.wallet.Address().Hex() || !body.Admin {
		t.Fatalf("wallet = %+v", body)
	}
}

func TestHuntEventsStreamBoardAndReleaseWatch(t *testing.T) {
	env := newTestEnv(t, false)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/hunts/1/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	rd := bufio.NewReader(resp.Body)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.TrimSpace(line) == "event: board" {
			break
		}
	}
	if !env.poller.Watching(hunt.Topic(1)) {
		t.Fatal("open stream should hold a board watch")
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for env.poller.Watching(hunt.Topic(1)) {
		if time.Now().After(deadline) {
			t.Fatal("watch not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
