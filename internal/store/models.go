package store

import "time"

// Log entry types recorded in the transactions collection.
const (
	LogProjectRegistration = "project_registration"
	LogCreditIssuance      = "credit_issuance"
	LogCreditRetirement    = "credit_retirement"
)

// Balance operation kinds applied through ApplyBalanceChange.
const (
	OpIssue  = "issue"
	OpRetire = "retire"
)

// Balances tracks per-project credit totals. circulating is always
// total_issued - total_retired and never negative.
type Balances struct {
	TotalIssued  int64 `bson:"total_issued" json:"total_issued"`
	TotalRetired int64 `bson:"total_retired" json:"total_retired"`
	Circulating  int64 `bson:"circulating" json:"circulating"`
}

// Project is a registered carbon-offset project.
type Project struct {
	ProjectID   string    `bson:"project_id" json:"project_id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	ProjectType string    `bson:"project_type" json:"project_type"`
	Location    string    `bson:"location" json:"location"`
	OwnerWallet string    `bson:"owner_wallet,omitempty" json:"owner_wallet,omitempty"`
	Status      string    `bson:"status" json:"status"`
	Balances    Balances  `bson:"balances" json:"balances"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// LogEntry is one append-only transaction log record.
type LogEntry struct {
	Type      string         `bson:"type" json:"type"`
	TxHash    string         `bson:"tx_hash" json:"tx_hash"`
	Details   map[string]any `bson:"details" json:"details"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
}

// User is an external user record; the gateway only reads these.
type User struct {
	WalletAddress string `bson:"wallet_address" json:"wallet_address"`
	MinterID      string `bson:"minter_id,omitempty" json:"minter_id,omitempty"`
	Community     string `bson:"community,omitempty" json:"community,omitempty"`
}

// DayCount is one bucket of the daily transaction series.
type DayCount struct {
	Day   string `bson:"_id" json:"day"`
	Count int64  `bson:"count" json:"count"`
}

// CommunityGroup clusters the users of a minter under one community label.
type CommunityGroup struct {
	Community string   `bson:"_id" json:"community"`
	Wallets   []string `bson:"wallets" json:"wallets"`
}

// BalanceTotals aggregates balances across all projects.
type BalanceTotals struct {
	TotalIssued  int64 `bson:"total_issued" json:"total_issued"`
	TotalRetired int64 `bson:"total_retired" json:"total_retired"`
	Circulating  int64 `bson:"circulating" json:"circulating"`
}
