package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// Repos are repositories bound to the transaction of a running unit of work.
type Repos struct {
	Users        *repository.UserRepository
	Transactions *repository.TransactionRepository
	Referrals    *repository.ReferralRepository
	Stocks       *repository.StockRepository
}

// UnitOfWork serializes writes per user and runs them in a single database transaction.
//
// The per-user lock keeps two requests of the same user from interleaving their
// read-validate-write steps inside this process. The transaction is opened with
// BEGIN IMMEDIATE, so other processes sharing the database file are kept out too.
type UnitOfWork struct {
	db    *sql.DB
	locks *keyedMutex
}

// NewUnitOfWork creates a UnitOfWork on db.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db, locks: newKeyedMutex()}
}

// Run executes fn for userID. fn's writes are committed together when it returns nil
// and rolled back otherwise. fn must only use the repositories it is given.
func (u *UnitOfWork) Run(ctx context.Context, userID string, fn func(ctx context.Context, r Repos) error) (err error) {
	unlock := u.locks.Lock(userID)
	defer unlock()

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.FromContext(ctx).Error("failed to rollback transaction", "user_id", userID, "error", rbErr)
			}
		}
	}()

	err = fn(ctx, u.repos(tx))
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Read runs fn against a single read-only snapshot of the database. It takes no
// per-user lock and issues a plain BEGIN, so writers are never blocked; every query fn
// makes sees the same committed state. fn must not write.
func (u *UnitOfWork) Read(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	//nolint:errcheck // Nothing to undo in a read-only transaction
	defer tx.Rollback()

	return fn(ctx, u.repos(tx))
}

func (u *UnitOfWork) repos(tx *sql.Tx) Repos {
	return Repos{
		Users:        repository.NewUserRepository(u.db).WithTx(tx),
		Transactions: repository.NewTransactionRepository(u.db).WithTx(tx),
		Referrals:    repository.NewReferralRepository(u.db).WithTx(tx),
		Stocks:       repository.NewStockRepository(u.db).WithTx(tx),
	}
}

// keyedMutex hands out one mutex per key. Entries are reference counted and removed
// once nobody holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.mu.Lock()

	return func() {
		m.mu.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
