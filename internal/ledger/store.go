package ledger

import "tally/internal/core"

// Store is the authoritative transaction collection. It is a plain
// in-memory list with no derived state of its own; the Engine owns the
// only instance and triggers recomputation after every mutation.
type Store struct {
	transactions []core.Transaction
}

func NewStore() *Store {
	return &Store{transactions: []core.Transaction{}}
}

// Add appends a transaction. The caller is responsible for validation and
// id assignment.
func (s *Store) Add(t core.Transaction) {
	s.transactions = append(s.transactions, t.Clone())
}

// Get returns a copy of the transaction with the given id.
func (s *Store) Get(id string) (core.Transaction, bool) {
	for _, t := range s.transactions {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return core.Transaction{}, false
}

// Put replaces the stored transaction carrying the same id. It reports
// whether a record was replaced.
func (s *Store) Put(t core.Transaction) bool {
	for i := range s.transactions {
		if s.transactions[i].ID == t.ID {
			s.transactions[i] = t.Clone()
			return true
		}
	}
	return false
}

// Delete removes the transaction with the given id, reporting whether
// anything was removed. An unknown id is a no-op.
func (s *Store) Delete(id string) bool {
	for i, t := range s.transactions {
		if t.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteByAccount removes every transaction referencing the account,
// returning the number removed. Used by the account cascade delete.
func (s *Store) DeleteByAccount(accountID string) int {
	kept := s.transactions[:0]
	removed := 0
	for _, t := range s.transactions {
		if t.Account == accountID {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.transactions = kept
	return removed
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []core.Transaction {
	out := make([]core.Transaction, len(s.transactions))
	for i, t := range s.transactions {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) Len() int {
	return len(s.transactions)
}

// Contains reports whether a transaction with the given id exists.
func (s *Store) Contains(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Replace swaps the whole collection, used when restoring a snapshot.
func (s *Store) Replace(transactions []core.Transaction) {
	s.transactions = make([]core.Transaction, len(transactions))
	for i, t := range transactions {
		s.transactions[i] = t.Clone()
	}
}
