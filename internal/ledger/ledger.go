// Package ledger holds the client-side cache of the user's transaction
// collection and performs mutations against the remote collaborator.
//
// The cache is never patched optimistically: every successful mutation
// marks it stale and the next read fetches fresh. A failed mutation
// leaves the cache untouched so consumers keep seeing pre-mutation
// state. All operations assume an authenticated session; access is
// gated upstream by the session manager.
package ledger

import (
	"context"
	"errors"
	"sync"

	govalidator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "financas/internal/errors"
	"financas/internal/logger"
	"financas/internal/models"
	"financas/internal/validator"
)

// API is the remote collaborator surface the ledger consumes.
type API interface {
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, req models.TransactionRequest) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// Store is the ledger store. Reads may run concurrently; the caller is
// expected to keep at most one mutation in flight per logical form.
type Store struct {
	api      API
	validate *govalidator.Validate
	log      *zap.SugaredLogger

	mu                sync.Mutex
	transactions      []models.Transaction
	transactionsValid bool
	categories        []models.Category
	categoriesValid   bool
}

// NewStore creates a Store over the given remote API.
func NewStore(api API) *Store {
	return &Store{
		api:      api,
		validate: validator.New(),
		log:      logger.Named("ledger"),
	}
}

// List returns the transaction collection in the server-defined order.
// A valid cache is served as-is; otherwise the collection is fetched
// and cached. The returned slice is a copy.
func (s *Store) List(ctx context.Context) ([]models.Transaction, error) {
	s.mu.Lock()
	if s.transactionsValid {
		cached := copyTransactions(s.transactions)
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	fetched, err := s.api.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.transactions = fetched
	s.transactionsValid = true
	cached := copyTransactions(s.transactions)
	s.mu.Unlock()

	s.log.Debugw("transaction collection refreshed", "count", len(fetched))
	return cached, nil
}

// Get fetches a single transaction by id, bypassing the cache.
func (s *Store) Get(ctx context.Context, id string) (*models.Transaction, error) {
	return s.api.GetTransaction(ctx, id)
}

// Categories returns the category collection, cached with the same
// discipline as transactions. Categories are consumed read-only.
func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	s.mu.Lock()
	if s.categoriesValid {
		cached := make([]models.Category, len(s.categories))
		copy(cached, s.categories)
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	fetched, err := s.api.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.categories = fetched
	s.categoriesValid = true
	cached := make([]models.Category, len(s.categories))
	copy(cached, s.categories)
	s.mu.Unlock()

	return cached, nil
}

// Create validates the request, creates the transaction remotely, and
// invalidates the cached collection on success.
func (s *Store) Create(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	created, err := s.api.CreateTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	s.invalidate()
	s.log.Infow("transaction created", "id", created.ID, "type", created.Type)
	return created, nil
}

// Update fully replaces the mutable fields of the transaction
// identified by id. Same validation contract as Create; invalidates the
// cache on success.
func (s *Store) Update(ctx context.Context, id string, req models.TransactionRequest) (*models.Transaction, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	updated, err := s.api.UpdateTransaction(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.invalidate()
	s.log.Infow("transaction updated", "id", id)
	return updated, nil
}

// Delete removes the transaction and invalidates the cache on success.
// Confirming destructive intent is the caller's responsibility.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.invalidate()
	s.log.Infow("transaction deleted", "id", id)
	return nil
}

// invalidate marks the cached transaction collection stale so the next
// read triggers a fresh fetch.
func (s *Store) invalidate() {
	s.mu.Lock()
	s.transactionsValid = false
	s.transactions = nil
	s.mu.Unlock()
}

// validateRequest applies the field-level contract before any mutation
// request goes out, then cross-checks that the referenced category's
// type agrees with the transaction type. The agreement check is skipped
// when the category collection cannot be fetched; the server remains
// authoritative either way.
func (s *Store) validateRequest(ctx context.Context, req models.TransactionRequest) error {
	fields := map[string]string{}

	if err := s.validate.Struct(req); err != nil {
		var verrs govalidator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperrors.Wrap(apperrors.ErrInvalidInput, err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = validator.Message(fe)
		}
	}
	if req.Date.IsZero() {
		fields["date"] = "is required"
	}
	if len(fields) > 0 {
		return apperrors.NewValidation(fields)
	}

	if req.CategoryID != "" {
		if err := s.checkCategoryType(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) checkCategoryType(ctx context.Context, req models.TransactionRequest) error {
	categories, err := s.Categories(ctx)
	if err != nil {
		s.log.Warnw("skipping category type check", "error", err)
		return nil
	}
	for _, c := range categories {
		if c.ID != req.CategoryID {
			continue
		}
		if c.Type != req.Type {
			return apperrors.NewValidation(map[string]string{
				"categoryId": "category " + c.Name + " is " + string(c.Type) + ", not " + string(req.Type),
			})
		}
		return nil
	}
	return apperrors.NewValidation(map[string]string{
		"categoryId": "unknown category",
	})
}

func copyTransactions(src []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(src))
	copy(out, src)
	return out
}
