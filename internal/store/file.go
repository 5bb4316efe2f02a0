package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/payvo/payvo/internal/ledger"
)

const (
	accountsFile = "all_accounts.json"
	requestsFile = "pending_requests.json"
)

// File persists the directory as two JSON documents under one data
// directory. Every write replaces its file atomically via rename.
type File struct {
	mu  sync.Mutex
	dir string
}

// NewFile creates dir if needed and returns a store rooted there.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) Load(_ context.Context) (ledger.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var snap ledger.Snapshot
	if err := f.read(accountsFile, &snap.Accounts); err != nil {
		return ledger.Snapshot{}, err
	}
	if err := f.read(requestsFile, &snap.Requests); err != nil {
		return ledger.Snapshot{}, err
	}
	return snap, nil
}

func (f *File) SaveAccounts(_ context.Context, accounts []ledger.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if accounts == nil {
		accounts = []ledger.Account{}
	}
	return f.write(accountsFile, accounts)
}

func (f *File) SaveAccount(_ context.Context, account ledger.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var accounts []ledger.Account
	if err := f.read(accountsFile, &accounts); err != nil {
		return err
	}
	return f.write(accountsFile, upsert(accounts, account))
}

func (f *File) SavePendingRequests(_ context.Context, requests []ledger.PendingRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if requests == nil {
		requests = []ledger.PendingRequest{}
	}
	return f.write(requestsFile, requests)
}

func (f *File) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (f *File) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(f.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
