// Package backup snapshots ledger data to JSON files so a run can be
// replayed later without talking to the API.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
)

const (
	transactionsSuffix = " Transactions.json"
	categoriesSuffix   = " Categories.json"
)

var snapshotName = regexp.MustCompile(`^(\d+) Transactions\.json$`)

// Store reads and writes snapshots in a directory. Every snapshot is a pair
// of files keyed by the unix epoch it was taken at.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) transactionsPath(epoch int64) string {
	return filepath.Join(s.Dir, strconv.FormatInt(epoch, 10)+transactionsSuffix)
}

func (s *Store) categoriesPath(epoch int64) string {
	return filepath.Join(s.Dir, strconv.FormatInt(epoch, 10)+categoriesSuffix)
}

// Save writes both files of a snapshot.
func (s *Store) Save(epoch int64, transactions []*ledger.Transaction, categories []ledger.Category) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}
	if transactions != nil {
		if err := writeJSON(s.transactionsPath(epoch), transactions); err != nil {
			return err
		}
	}
	if categories != nil {
		if err := writeJSON(s.categoriesPath(epoch), categories); err != nil {
			return err
		}
	}
	return nil
}

// LoadTransactions reads the transactions of a snapshot.
func (s *Store) LoadTransactions(epoch int64) ([]*ledger.Transaction, error) {
	var txs []*ledger.Transaction
	if err := readJSON(s.transactionsPath(epoch), &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// LoadCategories reads the categories of a snapshot.
func (s *Store) LoadCategories(epoch int64) ([]ledger.Category, error) {
	var cats []ledger.Category
	if err := readJSON(s.categoriesPath(epoch), &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// List returns the epochs of all transaction snapshots, oldest first.
func (s *Store) List() ([]int64, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var epochs []int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := snapshotName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		epoch, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		epochs = append(epochs, epoch)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })
	return epochs, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
