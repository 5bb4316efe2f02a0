// Package store holds the Account Store backends the ledger directory writes
// through to: an in-process copy for tests, JSON files for single-node use
// and PostgreSQL.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/payvo/payvo/internal/ledger"
)

// Memory keeps deep copies of everything it is handed.
type Memory struct {
	mu       sync.RWMutex
	accounts []ledger.Account
	requests []ledger.PendingRequest
}

// NewMemory builds an in-memory store, optionally pre-populated.
func NewMemory(seed ledger.Snapshot) *Memory {
	m := &Memory{}
	for _, a := range seed.Accounts {
		m.accounts = append(m.accounts, a.Clone())
	}
	m.requests = append(m.requests, seed.Requests...)
	return m
}

func (m *Memory) Load(_ context.Context) (ledger.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := ledger.Snapshot{Requests: append([]ledger.PendingRequest(nil), m.requests...)}
	for _, a := range m.accounts {
		snap.Accounts = append(snap.Accounts, a.Clone())
	}
	return snap, nil
}

func (m *Memory) SaveAccounts(_ context.Context, accounts []ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = m.accounts[:0]
	for _, a := range accounts {
		m.accounts = append(m.accounts, a.Clone())
	}
	return nil
}

func (m *Memory) SaveAccount(_ context.Context, account ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = upsert(m.accounts, account)
	return nil
}

func (m *Memory) SavePendingRequests(_ context.Context, requests []ledger.PendingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests[:0:0], requests...)
	return nil
}

// upsert replaces the account with the same email or appends it.
func upsert(accounts []ledger.Account, account ledger.Account) []ledger.Account {
	for i := range accounts {
		if strings.EqualFold(accounts[i].Email, account.Email) {
			accounts[i] = account.Clone()
			return accounts
		}
	}
	return append(accounts, account.Clone())
}
