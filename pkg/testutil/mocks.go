// Package testutil provides in-memory mock collaborators for handler tests.
package testutil

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bluecarbon-registry/gateway/internal/chain"
	"github.com/bluecarbon-registry/gateway/internal/store"
)

// =============================================================================
// Mock Ledger
// =============================================================================

// MockLedger is an in-memory ledger collaborator. When Err is set every
// operation fails with it.
type MockLedger struct {
	mu sync.Mutex

	Err      error
	TokenIDs map[string]int64 // projectID -> token id
	Balances map[string]int64 // address|tokenID -> balance
	Registry map[string]string

	Contract string

	// Call counters for asserting ordering contracts.
	RegisterCalls int
	IssueCalls    int
	RetireCalls   int
}

// NewMockLedger creates an empty mock ledger.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		TokenIDs: make(map[string]int64),
		Balances: make(map[string]int64),
		Registry: make(map[string]string),
		Contract: "0x2222222222222222222222222222222222222222",
	}
}

func (m *MockLedger) tx(nonce uint64) *chain.TxResult {
	return &chain.TxResult{
		TxHash: fmt.Sprintf("0xmock%d", nonce),
		From:   "0x1111111111111111111111111111111111111111",
		Nonce:  nonce,
		Status: "submitted",
	}
}

// RegisterProject records a registration and assigns the next token id.
func (m *MockLedger) RegisterProject(_ context.Context, projectID, _, _ string) (*chain.TxResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.RegisterCalls++
	if _, ok := m.TokenIDs[projectID]; !ok {
		m.TokenIDs[projectID] = int64(len(m.TokenIDs) + 1)
	}
	return m.tx(uint64(m.RegisterCalls)), nil
}

// IssueCredits records an issuance.
func (m *MockLedger) IssueCredits(_ context.Context, to, projectID string, amount int64, _, _ string) (*chain.TxResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.IssueCalls++
	key := fmt.Sprintf("%s|%d", strings.ToLower(to), m.TokenIDs[projectID])
	m.Balances[key] += amount
	return m.tx(uint64(m.IssueCalls)), nil
}

// RetireCredits records a retirement.
func (m *MockLedger) RetireCredits(_ context.Context, _ *big.Int, _ int64, _ string) (*chain.TxResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.RetireCalls++
	return m.tx(uint64(m.RetireCalls)), nil
}

// UpdateRegistry records a registry mapping.
func (m *MockLedger) UpdateRegistry(_ context.Context, name, target, _ string) (*chain.TxResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Registry[name] = target
	return m.tx(1), nil
}

// ProjectTokenID resolves the token id recorded for a project.
func (m *MockLedger) ProjectTokenID(_ context.Context, projectID string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return big.NewInt(m.TokenIDs[projectID]), nil
}

// BalanceOf reads a recorded balance.
func (m *MockLedger) BalanceOf(_ context.Context, address string, tokenID *big.Int) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	key := fmt.Sprintf("%s|%d", strings.ToLower(address), tokenID.Int64())
	return big.NewInt(m.Balances[key]), nil
}

// RegistryEntry reads a registry mapping, zero address when missing.
func (m *MockLedger) RegistryEntry(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if addr, ok := m.Registry[name]; ok {
		return addr, nil
	}
	return "0x0000000000000000000000000000000000000000", nil
}

// Ping reports the injected error, if any.
func (m *MockLedger) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}

// ContractAddress returns the configured contract address.
func (m *MockLedger) ContractAddress() string {
	return m.Contract
}

// =============================================================================
// Mock Repository
// =============================================================================

// MockRepository is an in-memory document store collaborator.
type MockRepository struct {
	mu sync.Mutex

	Err      error
	Projects map[string]*store.Project
	Logs     []store.LogEntry
	Users    []store.User
}

// NewMockRepository creates an empty mock repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{Projects: make(map[string]*store.Project)}
}

// AddUser seeds a user record.
func (m *MockRepository) AddUser(u store.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users = append(m.Users, u)
}

// CountProjects returns the number of stored projects.
func (m *MockRepository) CountProjects(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.Projects)), nil
}

// ListProjects returns a page of projects sorted by creation time.
func (m *MockRepository) ListProjects(_ context.Context, limit, skip int64) ([]store.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	all := make([]store.Project, 0, len(m.Projects))
	for _, p := range m.Projects {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	if skip >= int64(len(all)) {
		return []store.Project{}, nil
	}
	all = all[skip:]
	if limit > 0 && int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetProject returns a copy of the stored project or nil.
func (m *MockRepository) GetProject(_ context.Context, projectID string) (*store.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Projects[projectID]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

// InsertProject stores a project.
func (m *MockRepository) InsertProject(_ context.Context, p *store.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	copied := *p
	m.Projects[p.ProjectID] = &copied
	return nil
}

// ApplyBalanceChange mirrors the store's atomic $inc semantics.
func (m *MockRepository) ApplyBalanceChange(_ context.Context, projectID string, amount int64, op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	p, ok := m.Projects[projectID]
	if !ok {
		return fmt.Errorf("project %s not found", projectID)
	}
	switch op {
	case store.OpIssue:
		p.Balances.TotalIssued += amount
		p.Balances.Circulating += amount
	case store.OpRetire:
		p.Balances.TotalRetired += amount
		p.Balances.Circulating -= amount
	default:
		return fmt.Errorf("unknown balance operation: %s", op)
	}
	return nil
}

// ProjectsForOwner filters projects by lowercase owner wallet.
func (m *MockRepository) ProjectsForOwner(_ context.Context, wallet string) ([]store.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []store.Project{}
	for _, p := range m.Projects {
		if p.OwnerWallet == wallet {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SumBalances totals balances across all projects.
func (m *MockRepository) SumBalances(_ context.Context) (*store.BalanceTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	totals := &store.BalanceTotals{}
	for _, p := range m.Projects {
		totals.TotalIssued += p.Balances.TotalIssued
		totals.TotalRetired += p.Balances.TotalRetired
		totals.Circulating += p.Balances.Circulating
	}
	return totals, nil
}

// InsertLog appends a log entry.
func (m *MockRepository) InsertLog(_ context.Context, entry *store.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	m.Logs = append(m.Logs, *entry)
	return nil
}

// CountLogs returns the number of log entries.
func (m *MockRepository) CountLogs(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.Logs)), nil
}

// ProjectHistory returns log entries for a project, newest first.
func (m *MockRepository) ProjectHistory(_ context.Context, projectID string, limit int64) ([]store.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []store.LogEntry{}
	for i := len(m.Logs) - 1; i >= 0; i-- {
		if m.Logs[i].Details["project_id"] == projectID {
			out = append(out, m.Logs[i])
			if limit > 0 && int64(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

// IssuancesForWallet returns credit_issuance entries addressed to the
// wallet (lowercase comparison), newest first.
func (m *MockRepository) IssuancesForWallet(_ context.Context, wallet string, limit int64) ([]store.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []store.LogEntry{}
	for i := len(m.Logs) - 1; i >= 0; i-- {
		entry := m.Logs[i]
		if entry.Type != store.LogCreditIssuance {
			continue
		}
		to, _ := entry.Details["to_address"].(string)
		if strings.ToLower(to) == wallet {
			out = append(out, entry)
			if limit > 0 && int64(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

// DailyLogCounts buckets log entries by UTC day, sparse like the real
// aggregation.
func (m *MockRepository) DailyLogCounts(_ context.Context, since time.Time) ([]store.DayCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	byDay := map[string]int64{}
	for _, entry := range m.Logs {
		if entry.Timestamp.Before(since) {
			continue
		}
		byDay[entry.Timestamp.UTC().Format("2006-01-02")]++
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]store.DayCount, 0, len(days))
	for _, day := range days {
		out = append(out, store.DayCount{Day: day, Count: byDay[day]})
	}
	return out, nil
}

// CountUsers returns the number of user records.
func (m *MockRepository) CountUsers(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.Users)), nil
}

// UsersByCommunity groups a minter's users by community label.
func (m *MockRepository) UsersByCommunity(_ context.Context, minterID string) ([]store.CommunityGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	byCommunity := map[string][]string{}
	for _, u := range m.Users {
		if u.MinterID != minterID {
			continue
		}
		community := u.Community
		if community == "" {
			community = "Unspecified"
		}
		byCommunity[community] = append(byCommunity[community], u.WalletAddress)
	}

	names := make([]string, 0, len(byCommunity))
	for name := range byCommunity {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]store.CommunityGroup, 0, len(names))
	for _, name := range names {
		out = append(out, store.CommunityGroup{Community: name, Wallets: byCommunity[name]})
	}
	return out, nil
}

// Ping reports the injected error, if any.
func (m *MockRepository) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}
