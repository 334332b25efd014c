package ledger_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"financas/internal/api"
	"financas/internal/ledger"
	"financas/internal/models"
	"financas/internal/money"
	"financas/internal/testutil"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type env struct {
	server  *testutil.Server
	store   *ledger.Store
	userID  string
	income  models.Category
	expense models.Category
}

func setup(t *testing.T) *env {
	t.Helper()

	srv := testutil.StartServer(t)
	email := testutil.UniqueEmail()
	userID := testutil.SeedUser(t, srv, "Ana", email, "secret123")
	token := testutil.IssueToken(t, srv, email)

	client := api.New(srv.URL, 5*time.Second, staticToken(token))

	return &env{
		server:  srv,
		store:   ledger.NewStore(client),
		userID:  userID,
		income:  testutil.SeedCategory(t, srv, "Salário", models.TransactionTypeIncome),
		expense: testutil.SeedCategory(t, srv, "Mercado", models.TransactionTypeExpense),
	}
}

func (e *env) validRequest() models.TransactionRequest {
	return models.TransactionRequest{
		Type:        models.TransactionTypeExpense,
		Amount:      money.Money(4550),
		Description: "Compras no mercado",
		Date:        models.NewDate(2026, time.August, 15),
		CategoryID:  e.expense.ID,
	}
}

func TestListServesCacheUntilInvalidated(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	testutil.SeedTransaction(t, e.server, e.userID, models.TransactionTypeExpense,
		money.Money(1000), "Padaria", models.NewDate(2026, time.August, 10), e.expense)

	first, err := e.store.List(ctx)
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	second, err := e.store.List(ctx)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}

	if got := e.server.ListTransactionCalls(); got != 1 {
		t.Errorf("expected one fetch for two reads, got %d", got)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one transaction, got %d and %d", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Error("cached read returned a different transaction")
	}
}

func TestListReturnsCopies(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	testutil.SeedTransaction(t, e.server, e.userID, models.TransactionTypeExpense,
		money.Money(1000), "Padaria", models.NewDate(2026, time.August, 10), e.expense)

	first, err := e.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	first[0].Description = "mutated by caller"

	second, err := e.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if second[0].Description != "Padaria" {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestCreateInvalidatesCache(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	if _, err := e.store.List(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	created, err := e.store.Create(ctx, e.validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected server-assigned id")
	}
	if created.Category.ID != e.expense.ID {
		t.Errorf("expected category snapshot, got %+v", created.Category)
	}

	listed, err := e.store.List(ctx)
	if err != nil {
		t.Fatalf("list after create: %v", err)
	}
	if got := e.server.ListTransactionCalls(); got != 2 {
		t.Errorf("mutation must force a refetch, fetches = %d", got)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("expected created transaction in fresh list, got %+v", listed)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	created, err := e.store.Create(ctx, e.validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := e.validRequest()
	req.Type = models.TransactionTypeIncome
	req.Amount = money.Money(500000)
	req.Description = "Salário de agosto"
	req.CategoryID = e.income.ID

	updated, err := e.store.Update(ctx, created.ID, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount != money.Money(500000) || updated.Type != models.TransactionTypeIncome {
		t.Errorf("updated = %+v", updated)
	}

	fetched, err := e.store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Description != "Salário de agosto" {
		t.Errorf("replacement did not stick, got %q", fetched.Description)
	}
	if fetched.Category.ID != e.income.ID {
		t.Errorf("category not replaced, got %+v", fetched.Category)
	}
}

func TestDeleteRemovesAndInvalidates(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	created, err := e.store.Create(ctx, e.validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.store.List(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := e.store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	listed, err := e.store.List(ctx)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("expected empty collection, got %d transactions", len(listed))
	}

	_, err = e.store.Get(ctx, created.ID)
	testutil.AssertAppError(t, err, "NOT_FOUND")
}

func TestFailedMutationLeavesCacheIntact(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	testutil.SeedTransaction(t, e.server, e.userID, models.TransactionTypeExpense,
		money.Money(1000), "Padaria", models.NewDate(2026, time.August, 10), e.expense)

	if _, err := e.store.List(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	e.server.FailMutations(true)
	_, err := e.store.Create(ctx, e.validRequest())
	testutil.AssertAppError(t, err, "REMOTE_ERROR")

	listed, err := e.store.List(ctx)
	if err != nil {
		t.Fatalf("list after failed create: %v", err)
	}
	if got := e.server.ListTransactionCalls(); got != 1 {
		t.Errorf("failed mutation must not invalidate, fetches = %d", got)
	}
	if len(listed) != 1 {
		t.Errorf("expected pre-mutation state, got %d transactions", len(listed))
	}
}

func TestValidationRejectsBeforeAnyRequest(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	// Any mutation reaching the server would fail loudly; a validation
	// error proves the request never went out.
	e.server.FailMutations(true)

	tests := []struct {
		name    string
		mutate  func(*models.TransactionRequest)
		field   string
		message string
	}{
		{
			name:    "zero amount",
			mutate:  func(r *models.TransactionRequest) { r.Amount = 0 },
			field:   "amount",
			message: "must be greater than 0",
		},
		{
			name:    "negative amount",
			mutate:  func(r *models.TransactionRequest) { r.Amount = -100 },
			field:   "amount",
			message: "must be greater than 0",
		},
		{
			name:    "short description",
			mutate:  func(r *models.TransactionRequest) { r.Description = "ab" },
			field:   "description",
			message: "must be at least 3 characters",
		},
		{
			name:    "missing category",
			mutate:  func(r *models.TransactionRequest) { r.CategoryID = "" },
			field:   "categoryId",
			message: "is required",
		},
		{
			name:    "missing date",
			mutate:  func(r *models.TransactionRequest) { r.Date = models.Date{} },
			field:   "date",
			message: "is required",
		},
		{
			name:    "unknown type",
			mutate:  func(r *models.TransactionRequest) { r.Type = "TRANSFER" },
			field:   "type",
			message: "must be INCOME or EXPENSE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := e.validRequest()
			tt.mutate(&req)

			_, err := e.store.Create(ctx, req)
			appErr := testutil.AssertAppError(t, err, "INVALID_INPUT")
			if got := appErr.Fields[tt.field]; got != tt.message {
				t.Errorf("Fields[%q] = %q, want %q", tt.field, got, tt.message)
			}
		})
	}
}

func TestCategoryTypeAgreement(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.server.FailMutations(true)

	t.Run("type_mismatch", func(t *testing.T) {
		req := e.validRequest()
		req.Type = models.TransactionTypeIncome
		req.CategoryID = e.expense.ID

		_, err := e.store.Create(ctx, req)
		appErr := testutil.AssertAppError(t, err, "INVALID_INPUT")
		if msg := appErr.Fields["categoryId"]; !strings.Contains(msg, "EXPENSE") {
			t.Errorf("expected mismatch detail, got %q", msg)
		}
	})

	t.Run("unknown_category", func(t *testing.T) {
		req := e.validRequest()
		req.CategoryID = "no-such-category"

		_, err := e.store.Create(ctx, req)
		appErr := testutil.AssertAppError(t, err, "INVALID_INPUT")
		if got := appErr.Fields["categoryId"]; got != "unknown category" {
			t.Errorf("Fields[categoryId] = %q", got)
		}
	})
}

func TestCategoriesCachedAndCopied(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	first, err := e.store.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(first))
	}
	first[0].Name = "mutated"

	second, err := e.store.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if second[0].Name == "mutated" {
		t.Error("caller mutation leaked into the category cache")
	}
}

func TestMutationsSkippedCategoryCheckWhenUnfetchable(t *testing.T) {
	// A store whose categories endpoint is unreachable must still let
	// well-formed mutations through; the server stays authoritative.
	srv := testutil.StartServer(t)
	email := testutil.UniqueEmail()
	testutil.SeedUser(t, srv, "Ana", email, "secret123")
	token := testutil.IssueToken(t, srv, email)
	cat := testutil.SeedCategory(t, srv, "Mercado", models.TransactionTypeExpense)

	// Expired token: every authed call, including the category fetch,
	// is rejected. The pre-flight check is skipped and the mutation's
	// own failure surfaces instead of a validation error.
	srv.RevokeTokens()

	client := api.New(srv.URL, 5*time.Second, staticToken(token))
	store := ledger.NewStore(client)

	req := models.TransactionRequest{
		Type:        models.TransactionTypeExpense,
		Amount:      money.Money(4550),
		Description: "Compras no mercado",
		Date:        models.NewDate(2026, time.August, 15),
		CategoryID:  cat.ID,
	}
	_, err := store.Create(context.Background(), req)
	testutil.AssertAppError(t, err, "SESSION_EXPIRED")
}
