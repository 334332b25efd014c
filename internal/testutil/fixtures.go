package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"financas/internal/models"
	"financas/internal/money"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// SeedUser creates a user directly in the fake collaborator and returns
// its id. Password is bcrypt-hashed like a real registration.
func SeedUser(t *testing.T, s *Server, name, email, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user := &serverUser{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	s.users[email] = user
	return user.ID
}

// IssueToken mints a valid token for the given seeded user, as if the
// user had logged in earlier. Fails the test for unknown emails.
func IssueToken(t *testing.T, s *Server, email string) string {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		t.Fatalf("no seeded user with email %s", email)
	}
	return s.issueToken(user)
}

// SeedCategory creates a category of the given type.
func SeedCategory(t *testing.T, s *Server, name string, categoryType models.TransactionType) models.Category {
	t.Helper()

	cat := models.Category{
		ID:   uuid.New().String(),
		Name: name,
		Type: categoryType,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[cat.ID] = cat
	return cat
}

// SeedTransaction inserts a transaction owned by the given user,
// bypassing the HTTP surface.
func SeedTransaction(t *testing.T, s *Server, ownerID string, txType models.TransactionType, amount money.Money, description string, date models.Date, category models.Category) models.Transaction {
	t.Helper()

	now := time.Now().UTC()
	tx := &storedTransaction{
		Transaction: models.Transaction{
			ID:          uuid.New().String(),
			Type:        txType,
			Amount:      amount,
			Description: description,
			Date:        date,
			Category:    category,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		OwnerID: ownerID,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = tx
	return tx.Transaction
}

// UniqueEmail returns an email address unique within the test run.
func UniqueEmail() string {
	return fmt.Sprintf("user%d@test.com", nextID())
}
