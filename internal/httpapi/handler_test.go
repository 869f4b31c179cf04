package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluecarbon-registry/gateway/internal/config"
	"github.com/bluecarbon-registry/gateway/internal/httputil"
	"github.com/bluecarbon-registry/gateway/internal/store"
	"github.com/bluecarbon-registry/gateway/pkg/testutil"
)

const (
	adminToken  = "admin-secret"
	minterToken = "minter-secret"
	wallet      = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               8000,
		MongoDB:            "bluecarbon_test",
		NetworkName:        "Celo Alfajores",
		AdminToken:         adminToken,
		MinterToken:        minterToken,
		MinterID:           "minter-1",
		AdminPrivateKey:    "ad",
		MinterPrivateKey:   "mi",
		UserPrivateKey:     "us",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
}

func newTestRouter(t *testing.T) (*mux.Router, *testutil.MockLedger, *testutil.MockRepository) {
	t.Helper()
	ledger := testutil.NewMockLedger()
	repo := testutil.NewMockRepository()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := NewHandler(testConfig(), ledger, repo, logger)
	return NewRouter(h, prometheus.NewRegistry()), ledger, repo
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func errorDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	decodeBody(t, w, &resp)
	return resp.Detail
}

func registerProject(t *testing.T, router http.Handler, id, name string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/projects/register", adminToken, map[string]any{
		"project_id":   id,
		"metadata_cid": "QmMetadata",
		"name":         name,
		"description":  "Mangrove restoration along the coast",
		"project_type": "blue_carbon",
		"location":     "Tamil Nadu",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRegisterFetchRoundTrip(t *testing.T) {
	router, _, _ := newTestRouter(t)

	registerProject(t, router, "P1", "Mangrove Restoration")

	w := doJSON(t, router, http.MethodGet, "/projects/P1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var p store.Project
	decodeBody(t, w, &p)
	assert.Equal(t, "P1", p.ProjectID)
	assert.Equal(t, "Mangrove Restoration", p.Name)
	assert.Equal(t, "active", p.Status)
	assert.Zero(t, p.Balances.TotalIssued)
	assert.Zero(t, p.Balances.TotalRetired)
	assert.Zero(t, p.Balances.Circulating)
}

func TestRegisterDuplicateConflictSkipsLedger(t *testing.T) {
	router, ledger, repo := newTestRouter(t)

	require.NoError(t, repo.InsertProject(context.Background(), &store.Project{ProjectID: "P1", Status: "active"}))

	w := doJSON(t, router, http.MethodPost, "/projects/register", adminToken, map[string]any{
		"project_id": "P1",
		"name":       "Duplicate",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, errorDetail(t, w), "already exists")
	assert.Zero(t, ledger.RegisterCalls, "conflict must be detected before any ledger call")
}

func TestRegisterValidation(t *testing.T) {
	router, ledger, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/projects/register", adminToken, map[string]any{
		"project_id": "   ",
		"name":       "Empty",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, ledger.RegisterCalls)
}

func TestRegisterRequiresAdminToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/projects/register", "", map[string]any{"project_id": "P1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/projects/register", minterToken, map[string]any{"project_id": "P1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIssueRejectedBeforeCollaborators(t *testing.T) {
	router, ledger, repo := newTestRouter(t)
	require.NoError(t, repo.InsertProject(context.Background(), &store.Project{ProjectID: "P1", Status: "active"}))

	// Non-positive amount.
	w := doJSON(t, router, http.MethodPost, "/credits/issue", minterToken, map[string]any{
		"to_address": wallet,
		"project_id": "P1",
		"amount":     0,
		"proof_cid":  "QmProof",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Malformed address.
	w = doJSON(t, router, http.MethodPost, "/credits/issue", minterToken, map[string]any{
		"to_address": "not-an-address",
		"project_id": "P1",
		"amount":     10,
		"proof_cid":  "QmProof",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, ledger.IssueCalls, "validation failures must not reach the ledger")

	p, err := repo.GetProject(context.Background(), "P1")
	require.NoError(t, err)
	assert.Zero(t, p.Balances.TotalIssued)
}

func TestIssueUnknownProject(t *testing.T) {
	router, ledger, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/credits/issue", minterToken, map[string]any{
		"to_address": wallet,
		"project_id": "ghost",
		"amount":     10,
		"proof_cid":  "QmProof",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, ledger.IssueCalls)
}

func TestIssueRequiresMinterToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/credits/issue", adminToken, map[string]any{
		"to_address": wallet,
		"project_id": "P1",
		"amount":     10,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIssueRetireLifecycle(t *testing.T) {
	router, _, repo := newTestRouter(t)

	registerProject(t, router, "P1", "Mangrove Restoration")

	w := doJSON(t, router, http.MethodPost, "/credits/issue", minterToken, map[string]any{
		"to_address": wallet,
		"project_id": "P1",
		"amount":     100,
		"proof_cid":  "QmProof",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var issueResp struct {
		Success bool `json:"success"`
		Tx      struct {
			TxHash string `json:"tx_hash"`
		} `json:"tx"`
	}
	decodeBody(t, w, &issueResp)
	assert.True(t, issueResp.Success)
	assert.NotEmpty(t, issueResp.Tx.TxHash)

	p, err := repo.GetProject(context.Background(), "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, p.Balances.Circulating)

	w = doJSON(t, router, http.MethodPost, "/credits/retire", "", map[string]any{
		"project_id": "P1",
		"amount":     40,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p, err = repo.GetProject(context.Background(), "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 60, p.Balances.Circulating)
	assert.EqualValues(t, 40, p.Balances.TotalRetired)
	assert.EqualValues(t, p.Balances.TotalIssued-p.Balances.TotalRetired, p.Balances.Circulating)

	// Over-retirement reports the exact available amount.
	w = doJSON(t, router, http.MethodPost, "/credits/retire", "", map[string]any{
		"project_id": "P1",
		"amount":     100,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorDetail(t, w), "Available: 60")

	// Balances untouched by the rejected retirement.
	p, err = repo.GetProject(context.Background(), "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 60, p.Balances.Circulating)
}

func TestRetireLedgerFailureLeavesStoreUntouched(t *testing.T) {
	router, ledger, repo := newTestRouter(t)

	require.NoError(t, repo.InsertProject(context.Background(), &store.Project{
		ProjectID: "P1",
		Status:    "active",
		Balances:  store.Balances{TotalIssued: 100, Circulating: 100},
	}))
	ledger.Err = assert.AnError

	w := doJSON(t, router, http.MethodPost, "/credits/retire", "", map[string]any{
		"project_id": "P1",
		"amount":     40,
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	p, err := repo.GetProject(context.Background(), "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, p.Balances.Circulating, "store must not mutate after a ledger failure")
	assert.Zero(t, p.Balances.TotalRetired)
	assert.Empty(t, repo.Logs)
}

func TestBalanceEndpoint(t *testing.T) {
	router, ledger, _ := newTestRouter(t)

	ledger.TokenIDs["P1"] = 7
	ledger.Balances["0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed|7"] = 250

	w := doJSON(t, router, http.MethodGet, "/balance/"+wallet+"/P1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Address   string `json:"address"`
		ProjectID string `json:"project_id"`
		TokenID   int64  `json:"token_id"`
		Balance   int64  `json:"balance"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, wallet, resp.Address)
	assert.Equal(t, "P1", resp.ProjectID)
	assert.EqualValues(t, 7, resp.TokenID)
	assert.EqualValues(t, 250, resp.Balance)

	w = doJSON(t, router, http.MethodGet, "/balance/nonsense/P1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistryEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/registry/verifier", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/registry/update", adminToken, map[string]any{
		"name":    "verifier",
		"address": wallet,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/registry/verifier", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entry map[string]string
	decodeBody(t, w, &entry)
	assert.Equal(t, wallet, entry["address"])
}

func TestRegistryUpdateRequiresAdmin(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/registry/update", minterToken, map[string]any{
		"name":    "verifier",
		"address": wallet,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLedgerDisabled(t *testing.T) {
	repo := testutil.NewMockRepository()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := NewHandler(testConfig(), nil, repo, logger)
	router := NewRouter(h, prometheus.NewRegistry())

	require.NoError(t, repo.InsertProject(context.Background(), &store.Project{
		ProjectID: "P1",
		Status:    "active",
		Balances:  store.Balances{TotalIssued: 10, Circulating: 10},
	}))

	w := doJSON(t, router, http.MethodPost, "/projects/register", adminToken, map[string]any{
		"project_id": "P2",
		"name":       "Disabled",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, router, http.MethodPost, "/credits/retire", "", map[string]any{
		"project_id": "P1",
		"amount":     5,
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, router, http.MethodGet, "/balance/"+wallet+"/P1", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Store-only routes keep working.
	w = doJSON(t, router, http.MethodGet, "/projects/P1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListProjectsValidation(t *testing.T) {
	router, _, repo := newTestRouter(t)

	for _, path := range []string{"/projects?limit=-1", "/projects?skip=-2", "/projects?limit=abc"} {
		w := doJSON(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}

	for i, id := range []string{"A", "B", "C"} {
		require.NoError(t, repo.InsertProject(context.Background(), &store.Project{
			ProjectID: id,
			Status:    "active",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}))
	}

	w := doJSON(t, router, http.MethodGet, "/projects?limit=2&skip=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var projects []store.Project
	decodeBody(t, w, &projects)
	require.Len(t, projects, 2)
	assert.Equal(t, "B", projects[0].ProjectID)
}

func TestRootAndHealth(t *testing.T) {
	router, _, repo := newTestRouter(t)

	require.NoError(t, repo.InsertProject(context.Background(), &store.Project{
		ProjectID: "P1",
		Balances:  store.Balances{TotalIssued: 42, Circulating: 42},
	}))

	w := doJSON(t, router, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var root map[string]any
	decodeBody(t, w, &root)
	assert.Equal(t, "ready", root["status"])
	assert.EqualValues(t, 1, root["projects"])
	assert.EqualValues(t, 42, root["total_credits_issued"])
	assert.Equal(t, "Celo Alfajores", root["network"])

	w = doJSON(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	decodeBody(t, w, &health)
	assert.Equal(t, "healthy", health["status"])
	blockchain := health["blockchain"].(map[string]any)
	assert.Equal(t, true, blockchain["enabled"])
	assert.Equal(t, true, blockchain["connected"])
}

func TestProjectHistory(t *testing.T) {
	router, _, repo := newTestRouter(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.InsertLog(context.Background(), &store.LogEntry{
			Type:      store.LogCreditIssuance,
			TxHash:    "0xabc",
			Details:   map[string]any{"project_id": "P1", "amount": int64(i + 1)},
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.InsertLog(context.Background(), &store.LogEntry{
		Type:    store.LogCreditIssuance,
		TxHash:  "0xother",
		Details: map[string]any{"project_id": "P2"},
	}))

	w := doJSON(t, router, http.MethodGet, "/projects/P1/history?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []store.LogEntry
	decodeBody(t, w, &entries)
	require.Len(t, entries, 2)
	// Newest first.
	assert.EqualValues(t, 3, entries[0].Details["amount"])
	assert.EqualValues(t, 2, entries[1].Details["amount"])
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	doJSON(t, router, http.MethodGet, "/projects", "", nil)

	w := doJSON(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gateway_http_requests_total")
}
