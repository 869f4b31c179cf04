// Package httpapi wires the gateway's REST routes. Every route follows the
// same shape: validate, authorize where required, call the ledger and/or
// store, then respond.
package httpapi

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bluecarbon-registry/gateway/internal/chain"
	"github.com/bluecarbon-registry/gateway/internal/config"
	"github.com/bluecarbon-registry/gateway/internal/httputil"
	"github.com/bluecarbon-registry/gateway/internal/middleware"
	"github.com/bluecarbon-registry/gateway/internal/store"
)

// Version is the API version reported on the banner route.
const Version = "1.0.0"

// Ledger is the on-chain collaborator. A nil Ledger means the chain client
// is disabled by configuration.
type Ledger interface {
	RegisterProject(ctx context.Context, projectID, metadataCID, keyHex string) (*chain.TxResult, error)
	IssueCredits(ctx context.Context, to, projectID string, amount int64, proofCID, keyHex string) (*chain.TxResult, error)
	RetireCredits(ctx context.Context, tokenID *big.Int, amount int64, keyHex string) (*chain.TxResult, error)
	UpdateRegistry(ctx context.Context, name, target, keyHex string) (*chain.TxResult, error)
	ProjectTokenID(ctx context.Context, projectID string) (*big.Int, error)
	BalanceOf(ctx context.Context, address string, tokenID *big.Int) (*big.Int, error)
	RegistryEntry(ctx context.Context, name string) (string, error)
	Ping(ctx context.Context) error
	ContractAddress() string
}

// Repository is the document store collaborator.
type Repository interface {
	CountProjects(ctx context.Context) (int64, error)
	ListProjects(ctx context.Context, limit, skip int64) ([]store.Project, error)
	GetProject(ctx context.Context, projectID string) (*store.Project, error)
	InsertProject(ctx context.Context, p *store.Project) error
	ApplyBalanceChange(ctx context.Context, projectID string, amount int64, op string) error
	ProjectsForOwner(ctx context.Context, wallet string) ([]store.Project, error)
	SumBalances(ctx context.Context) (*store.BalanceTotals, error)
	InsertLog(ctx context.Context, entry *store.LogEntry) error
	CountLogs(ctx context.Context) (int64, error)
	ProjectHistory(ctx context.Context, projectID string, limit int64) ([]store.LogEntry, error)
	IssuancesForWallet(ctx context.Context, wallet string, limit int64) ([]store.LogEntry, error)
	DailyLogCounts(ctx context.Context, since time.Time) ([]store.DayCount, error)
	CountUsers(ctx context.Context) (int64, error)
	UsersByCommunity(ctx context.Context, minterID string) ([]store.CommunityGroup, error)
	Ping(ctx context.Context) error
}

// Handler bundles the gateway's HTTP endpoints.
type Handler struct {
	cfg    *config.Config
	ledger Ledger
	repo   Repository
	log    *logrus.Logger
}

// NewHandler creates the handler set. ledger may be nil when the chain
// client is disabled.
func NewHandler(cfg *config.Config, ledger Ledger, repo Repository, logger *logrus.Logger) *Handler {
	return &Handler{cfg: cfg, ledger: ledger, repo: repo, log: logger}
}

// NewRouter builds the full route table with middleware.
func NewRouter(h *Handler, reg *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()

	metrics := middleware.NewMetrics(reg)
	r.Use(middleware.CORS(h.cfg.CORSAllowedOrigins))
	r.Use(middleware.Logging(h.log))
	r.Use(metrics.Handler)

	adminOnly := middleware.RequireToken(middleware.NewStaticTokenVerifier("admin", h.cfg.AdminToken))
	minterOnly := middleware.RequireToken(middleware.NewStaticTokenVerifier("minter", h.cfg.MinterToken))

	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/projects", h.listProjects).Methods(http.MethodGet)
	r.HandleFunc("/projects/{project_id}", h.getProject).Methods(http.MethodGet)
	r.HandleFunc("/projects/{project_id}/history", h.projectHistory).Methods(http.MethodGet)
	r.Handle("/projects/register", adminOnly(http.HandlerFunc(h.registerProject))).Methods(http.MethodPost)

	r.Handle("/credits/issue", minterOnly(http.HandlerFunc(h.issueCredits))).Methods(http.MethodPost)
	// Retirement is deliberately open: end users retire their own credits.
	r.HandleFunc("/credits/retire", h.retireCredits).Methods(http.MethodPost)

	r.HandleFunc("/balance/{address}/{project_id}", h.balance).Methods(http.MethodGet)

	r.HandleFunc("/registry/{name}", h.registryEntry).Methods(http.MethodGet)
	r.Handle("/registry/update", adminOnly(http.HandlerFunc(h.updateRegistry))).Methods(http.MethodPost)

	r.Handle("/admin/stats", adminOnly(http.HandlerFunc(h.adminStats))).Methods(http.MethodGet)
	r.Handle("/admin/transactions/series", adminOnly(http.HandlerFunc(h.transactionSeries))).Methods(http.MethodGet)

	r.HandleFunc("/user/{wallet}/projects", h.userProjects).Methods(http.MethodGet)
	r.HandleFunc("/user/{wallet}/credits", h.userCredits).Methods(http.MethodGet)

	r.Handle("/minter/{minter_id}/assignments", minterOnly(http.HandlerFunc(h.minterAssignments))).Methods(http.MethodGet)

	return r
}

// requireLedger fails the request with 503 when the chain client is
// disabled. Ledger-backed routes must degrade gracefully, not panic.
func (h *Handler) requireLedger(w http.ResponseWriter) bool {
	if h.ledger == nil {
		httputil.ServiceUnavailable(w, "blockchain client disabled")
		return false
	}
	return true
}

// txResponse is the body of every successful mutating ledger operation.
type txResponse struct {
	Success bool            `json:"success"`
	Tx      *chain.TxResult `json:"tx"`
	Message string          `json:"message"`
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	count, err := h.repo.CountProjects(r.Context())
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	totals, err := h.repo.SumBalances(r.Context())
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":              "BlueCarbon API - South India Carbon Registry",
		"version":              Version,
		"status":               "ready",
		"projects":             count,
		"total_credits_issued": totals.TotalIssued,
		"network":              h.cfg.NetworkName,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.repo.Ping(r.Context()) == nil

	blockchain := map[string]any{"enabled": h.ledger != nil}
	if h.ledger != nil {
		blockchain["connected"] = h.ledger.Ping(r.Context()) == nil
		blockchain["contract"] = h.ledger.ContractAddress()
	}

	projects, _ := h.repo.CountProjects(r.Context())

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().UTC(),
		"database":       map[string]any{"name": h.cfg.MongoDB, "connected": dbConnected},
		"blockchain":     blockchain,
		"projects_count": projects,
	})
}
