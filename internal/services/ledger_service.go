package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/storage"

	"github.com/shopspring/decimal"
)

// LedgerService composes the aggregation engine with its external
// collaborators: the snapshot store and the AMQP event stream. It is also
// the explicit write-serialization point the engine itself refuses to be;
// every command holds the write lock for the whole mutate-recompute-persist
// sequence, so concurrent HTTP handlers always observe consistent state.
type LedgerService struct {
	mu         sync.RWMutex
	engine     *ledger.Engine
	storage    *storage.SnapshotStore
	amqpClient *amqp.Client
}

func NewLedgerService(engine *ledger.Engine, store *storage.SnapshotStore, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		engine:     engine,
		storage:    store,
		amqpClient: amqpClient,
	}
}

// RestoreLatest loads the newest persisted snapshot into the engine. An
// empty store is not an error; the engine keeps its seeded state.
func (s *LedgerService) RestoreLatest(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	snap, revision, err := s.storage.LoadLatest(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		slog.InfoContext(ctx, "No snapshot stored, starting from seeded state")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.RestoreSnapshot(snap)

	slog.InfoContext(ctx, "Ledger restored from snapshot",
		"revision", revision,
		"transactions", s.engine.TransactionCount(),
		"accounts", len(s.engine.Accounts()))
	return nil
}

// afterMutation persists a snapshot and publishes the change event. The
// mutation already happened; a persistence or publish failure is logged
// but never unwinds it.
func (s *LedgerService) afterMutation(ctx context.Context, op string) {
	revision := s.engine.Revision()

	if s.storage != nil {
		if err := s.storage.Save(ctx, revision, s.engine.Snapshot()); err != nil {
			slog.ErrorContext(ctx, "Failed to persist snapshot",
				"op", op, "revision", revision, "error", err)
			return // nothing durable to announce
		}
	}

	if s.amqpClient == nil {
		return
	}
	msg := amqp.NewLedgerChangedMessage(revision, op, s.engine.TransactionCount(), len(s.engine.Accounts()))
	if err := s.amqpClient.PublishLedgerChanged(ctx, msg); err != nil {
		// Don't fail the command - the snapshot is saved locally.
		slog.ErrorContext(ctx, "Failed to publish change event",
			"op", op, "revision", revision, "error", err)
	}
}

func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.engine.AddTransaction(t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.afterMutation(ctx, "transaction.add")
	return added, nil
}

func (s *LedgerService) ImportTransactions(ctx context.Context, batch []core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.engine.ImportTransactions(batch)
	if err != nil {
		return 0, err
	}
	s.afterMutation(ctx, "transaction.import")
	return count, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.engine.UpdateTransaction(id, patch)
	if err != nil {
		return core.Transaction{}, err
	}
	s.afterMutation(ctx, "transaction.update")
	return updated, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A no-op delete changes nothing; persisting or publishing for it
	// would announce a mutation that never happened.
	if s.engine.DeleteTransaction(id) {
		s.afterMutation(ctx, "transaction.delete")
	}
}

func (s *LedgerService) DeleteTransactions(ctx context.Context, ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.engine.DeleteTransactions(ids)
	if removed > 0 {
		s.afterMutation(ctx, "transaction.batch_delete")
	}
	return removed
}

func (s *LedgerService) AddAccount(ctx context.Context, spec core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.engine.AddAccount(spec)
	if err != nil {
		return core.Account{}, err
	}
	s.afterMutation(ctx, "account.add")
	return added, nil
}

func (s *LedgerService) UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.engine.UpdateAccount(id, patch)
	if err != nil {
		return core.Account{}, err
	}
	s.afterMutation(ctx, "account.update")
	return updated, nil
}

func (s *LedgerService) DeleteAccount(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine.DeleteAccount(id) {
		s.afterMutation(ctx, "account.delete")
	}
}

func (s *LedgerService) UpdateBudget(ctx context.Context, id string, ceiling decimal.Decimal) (core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.engine.UpdateBudget(id, ceiling)
	if err != nil {
		return core.BudgetCategory{}, err
	}
	s.afterMutation(ctx, "budget.update")
	return updated, nil
}

func (s *LedgerService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, description string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	legs, err := s.engine.Transfer(fromAccountID, toAccountID, amount, description)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, "transfer")
	return legs, nil
}

func (s *LedgerService) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Reset()
	s.afterMutation(ctx, "reset")
}

// View configuration commands mutate only the query view, never the
// transaction data, but they are part of the persisted state.

func (s *LedgerService) SetFilter(ctx context.Context, f ledger.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.SetFilter(f)
	s.afterMutation(ctx, "view.filter")
}

func (s *LedgerService) SetSort(ctx context.Context, sort ledger.Sort) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.SetSort(sort); err != nil {
		return err
	}
	s.afterMutation(ctx, "view.sort")
	return nil
}

func (s *LedgerService) ToggleSort(ctx context.Context, field ledger.SortField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.ToggleSort(field); err != nil {
		return err
	}
	s.afterMutation(ctx, "view.sort")
	return nil
}

func (s *LedgerService) SetPage(ctx context.Context, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.SetPage(number); err != nil {
		return err
	}
	s.afterMutation(ctx, "view.page")
	return nil
}

func (s *LedgerService) SetPageSize(ctx context.Context, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.SetPageSize(size); err != nil {
		return err
	}
	s.afterMutation(ctx, "view.page")
	return nil
}

func (s *LedgerService) SetCurrentAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.SetCurrentAccount(id); err != nil {
		return err
	}
	s.afterMutation(ctx, "view.account")
	return nil
}

// Snapshot-read interface. All results are copies.

func (s *LedgerService) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Transactions()
}

func (s *LedgerService) Transaction(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Transaction(id)
}

func (s *LedgerService) Accounts() []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Accounts()
}

func (s *LedgerService) Budgets() []core.BudgetCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Budgets()
}

func (s *LedgerService) Statistics() core.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Statistics()
}

func (s *LedgerService) Query() ledger.QueryResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Query()
}

func (s *LedgerService) QueryWith(f ledger.Filter, sort ledger.Sort, p ledger.Page) ledger.QueryResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.QueryWith(f, sort, p)
}

func (s *LedgerService) ViewConfig() (ledger.Filter, ledger.Sort, ledger.Page, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Filter(), s.engine.Sort(), s.engine.Page(), s.engine.CurrentAccount()
}

func (s *LedgerService) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Revision()
}

func (s *LedgerService) Snapshot() ledger.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Snapshot()
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
