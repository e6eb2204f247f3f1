package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type customerFailRepo struct {
	RepositoryPort
	err error
}

func (r customerFailRepo) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return Customer{}, r.err
}

func newHandlerRouter(repo RepositoryPort) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo))
	r := chi.NewRouter()
	r.Route("/customers", h.MountRoutes)
	return r
}

func TestGetCustomerStorageFailureIsServerError(t *testing.T) {
	router := newHandlerRouter(customerFailRepo{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/1", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"message":"Server error"}`, rec.Body.String())
}

func TestPaymentToUnknownCustomerIsNotFound(t *testing.T) {
	router := newHandlerRouter(newMemoryRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/customers/404/payments", strings.NewReader(`{"amount":10}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"Customer not found"}`, rec.Body.String())
}

func TestLedgerOfUnknownCustomerIsNotFound(t *testing.T) {
	router := newHandlerRouter(newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/404/ledger", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"Customer not found"}`, rec.Body.String())
}
