// Package testutil provides an in-process double of the remote ledger
// API plus fixtures and assertions. The double implements the consumed
// REST contract over in-memory state, issues real signed JWTs, and
// hashes passwords, so client behavior against it matches production
// shape closely enough for round-trip tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"financas/internal/models"
	"financas/internal/money"
	"financas/internal/validator"
)

type serverUser struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
}

type storedTransaction struct {
	models.Transaction
	OwnerID string
}

// Server is the fake remote collaborator.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	jwtSecret     []byte
	users         map[string]*serverUser // keyed by email
	categories    map[string]models.Category
	transactions  map[string]*storedTransaction
	failMutations bool
	listCalls     int
}

// StartServer starts the fake collaborator and registers its shutdown
// with the test's cleanup.
func StartServer(t *testing.T) *Server {
	t.Helper()

	gin.SetMode(gin.TestMode)
	validator.RegisterBinding()

	s := &Server{
		jwtSecret:    []byte("test-secret"),
		users:        make(map[string]*serverUser),
		categories:   make(map[string]models.Category),
		transactions: make(map[string]*storedTransaction),
	}

	r := gin.New()
	r.POST("/auth/register", s.handleRegister)
	r.POST("/auth/login", s.handleLogin)

	authed := r.Group("", s.authMiddleware)
	authed.GET("/transactions", s.handleListTransactions)
	authed.POST("/transactions", s.handleCreateTransaction)
	authed.GET("/transactions/:id", s.handleGetTransaction)
	authed.PUT("/transactions/:id", s.handleUpdateTransaction)
	authed.DELETE("/transactions/:id", s.handleDeleteTransaction)
	authed.GET("/categories", s.handleListCategories)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// FailMutations makes every subsequent mutation endpoint return a 500
// so tests can exercise the mutation-failure path.
func (s *Server) FailMutations(fail bool) {
	s.mu.Lock()
	s.failMutations = fail
	s.mu.Unlock()
}

// RevokeTokens rotates the signing secret, so every previously issued
// token is rejected on its next use: the stale-session scenario.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.jwtSecret = []byte("rotated-" + uuid.New().String())
	s.mu.Unlock()
}

// ListTransactionCalls reports how many times GET /transactions was
// served, for cache-invalidation assertions.
func (s *Server) ListTransactionCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// --- auth ---

type registerPayload struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Email]; exists {
		respondError(c, http.StatusConflict, "DUPLICATE_EMAIL", "A user with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	user := &serverUser{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	s.users[req.Email] = user

	c.JSON(http.StatusCreated, gin.H{
		"token": s.issueToken(user),
		"type":  "Bearer",
		"user":  publicUser(user),
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[req.Email]
	if !ok || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": s.issueToken(user),
		"type":  "Bearer",
		"user":  publicUser(user),
	})
}

func (s *Server) issueToken(user *serverUser) string {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString(s.jwtSecret)
	return signed
}

func (s *Server) authMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if len(header) < 8 || header[:7] != "Bearer " {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		c.Abort()
		return
	}

	s.mu.Lock()
	secret := s.jwtSecret
	s.mu.Unlock()

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(header[7:], claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		c.Abort()
		return
	}

	sub, _ := claims["sub"].(string)
	c.Set("userID", sub)
	c.Next()
}

// --- transactions ---

type transactionPayload struct {
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount      money.Money            `json:"amount" binding:"gt=0"`
	Description string                 `json:"description" binding:"required,min=3"`
	Date        models.Date            `json:"date" binding:"required"`
	CategoryID  string                 `json:"categoryId" binding:"required"`
	Attachment  string                 `json:"attachment"`
}

func (s *Server) handleListTransactions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listCalls++
	userID := c.GetString("userID")

	out := make([]models.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if tx.OwnerID == userID {
			out = append(out, tx.Transaction)
		}
	}
	// Server-defined order: most recent date first, insertion recency
	// breaking ties.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[c.Param("id")]
	if !ok || tx.OwnerID != c.GetString("userID") {
		respondError(c, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found")
		return
	}
	c.JSON(http.StatusOK, tx.Transaction)
}

func (s *Server) handleCreateTransaction(c *gin.Context) {
	var req transactionPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failMutations {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	category, ok := s.categories[req.CategoryID]
	if !ok {
		respondError(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}
	if category.Type != req.Type {
		respondError(c, http.StatusBadRequest, "CATEGORY_TYPE_MISMATCH", "Category type does not match transaction type")
		return
	}

	now := time.Now().UTC()
	tx := &storedTransaction{
		Transaction: models.Transaction{
			ID:          uuid.New().String(),
			Type:        req.Type,
			Amount:      req.Amount,
			Description: req.Description,
			Date:        req.Date,
			Attachment:  req.Attachment,
			Category:    category,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		OwnerID: c.GetString("userID"),
	}
	s.transactions[tx.ID] = tx

	c.JSON(http.StatusCreated, tx.Transaction)
}

func (s *Server) handleUpdateTransaction(c *gin.Context) {
	var req transactionPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failMutations {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	tx, ok := s.transactions[c.Param("id")]
	if !ok || tx.OwnerID != c.GetString("userID") {
		respondError(c, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found")
		return
	}

	category, ok := s.categories[req.CategoryID]
	if !ok {
		respondError(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}
	if category.Type != req.Type {
		respondError(c, http.StatusBadRequest, "CATEGORY_TYPE_MISMATCH", "Category type does not match transaction type")
		return
	}

	tx.Type = req.Type
	tx.Amount = req.Amount
	tx.Description = req.Description
	tx.Date = req.Date
	tx.Attachment = req.Attachment
	tx.Category = category
	tx.UpdatedAt = time.Now().UTC()

	c.JSON(http.StatusOK, tx.Transaction)
}

func (s *Server) handleDeleteTransaction(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failMutations {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	tx, ok := s.transactions[c.Param("id")]
	if !ok || tx.OwnerID != c.GetString("userID") {
		respondError(c, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found")
		return
	}
	delete(s.transactions, tx.ID)

	c.Status(http.StatusNoContent)
}

// --- categories ---

func (s *Server) handleListCategories(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Category, 0, len(s.categories))
	for _, cat := range s.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	c.JSON(http.StatusOK, out)
}

func publicUser(u *serverUser) gin.H {
	return gin.H{"id": u.ID, "name": u.Name, "email": u.Email}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{"code": code, "message": message},
	})
}
