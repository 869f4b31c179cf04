package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/bluecarbon-registry/gateway/internal/httputil"
	"github.com/bluecarbon-registry/gateway/internal/validate"
)

const dayFormat = "2006-01-02"

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repo.CountProjects(r.Context())
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	totals, err := h.repo.SumBalances(r.Context())
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	transactions, err := h.repo.CountLogs(r.Context())
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	users, err := h.repo.CountUsers(r.Context())
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"projects":      projects,
		"total_issued":  totals.TotalIssued,
		"total_retired": totals.TotalRetired,
		"circulating":   totals.Circulating,
		"transactions":  transactions,
		"users":         users,
	})
}

// transactionSeries returns one bucket per UTC calendar day for the last
// `days` days ending today, with zero counts for quiet days.
func (h *Handler) transactionSeries(w http.ResponseWriter, r *http.Request) {
	days, err := validate.PageParam("days", r.URL.Query().Get("days"), 14)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if days < 1 {
		httputil.BadRequest(w, "days must be at least 1")
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -int(days-1))

	counts, err := h.repo.DailyLogCounts(r.Context(), since)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.Day] = c.Count
	}

	series := make([]map[string]any, 0, days)
	for i := int64(0); i < days; i++ {
		day := since.AddDate(0, 0, int(i)).Format(dayFormat)
		series = append(series, map[string]any{
			"timestamp": day,
			"count":     byDay[day],
		})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"series": series,
	})
}

func (h *Handler) userProjects(w http.ResponseWriter, r *http.Request) {
	wallet := strings.ToLower(mux.Vars(r)["wallet"])

	projects, err := h.repo.ProjectsForOwner(r.Context(), wallet)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, projects)
}

func (h *Handler) userCredits(w http.ResponseWriter, r *http.Request) {
	wallet := strings.ToLower(mux.Vars(r)["wallet"])

	limit, err := validate.PageParam("limit", r.URL.Query().Get("limit"), 50)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	entries, err := h.repo.IssuancesForWallet(r.Context(), wallet, limit)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) minterAssignments(w http.ResponseWriter, r *http.Request) {
	minterID := mux.Vars(r)["minter_id"]

	groups, err := h.repo.UsersByCommunity(r.Context(), minterID)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}

	communities := make(map[string][]string, len(groups))
	var total int64
	for _, g := range groups {
		communities[g.Community] = g.Wallets
		total += int64(len(g.Wallets))
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"minter_id":   minterID,
		"communities": communities,
		"total_users": total,
	})
}
