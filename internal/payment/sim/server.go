// Package sim stands in for the hosted payment form during development and tests.
package sim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Johnm75/Tienda/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Server struct {
	status StatusSource
	log    *zap.Logger

	mu       sync.RWMutex
	payments map[string]payment.Confirmation
}

func NewServer(status StatusSource, log *zap.Logger) *Server {
	if status == nil {
		status = RandomStatus{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		status:   status,
		log:      log,
		payments: make(map[string]payment.Confirmation),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/pay", s.Pay)
	r.Get("/api/v1/payments/{token}", s.GetPayment)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// Pay plays the user filling in the form: it settles the outcome, issues a
// token and sends the browser back to return_url.
func (s *Server) Pay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	requestID := q.Get("request_id")
	if requestID == "" {
		respondError(w, http.StatusBadRequest, "request_id is required")
		return
	}
	if q.Get("recipient") == "" {
		respondError(w, http.StatusBadRequest, "recipient is required")
		return
	}
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil || amount.IsNegative() {
		respondError(w, http.StatusBadRequest, "amount must be a non-negative decimal")
		return
	}
	currency := strings.ToUpper(q.Get("currency"))
	if currency == "" {
		respondError(w, http.StatusBadRequest, "currency is required")
		return
	}
	returnURL, err := url.Parse(q.Get("return_url"))
	if err != nil || returnURL.Scheme == "" || returnURL.Host == "" {
		respondError(w, http.StatusBadRequest, "return_url must be an absolute url")
		return
	}

	approved, refusal := s.status.Outcome()
	conf := payment.Confirmation{
		RequestID: requestID,
		Status:    payment.StatusDeclined,
		Amount:    amount,
		Currency:  currency,
		Reason:    string(refusal),
	}
	if approved {
		conf.Status = payment.StatusApproved
		conf.PaymentID = fmt.Sprintf("TXN-%s", uuid.NewString())
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.payments[token] = conf
	s.mu.Unlock()

	s.log.Info("payment settled",
		zap.String("request_id", requestID),
		zap.String("status", conf.Status),
		zap.String("amount", amount.String()),
		zap.String("currency", currency))

	back := returnURL.Query()
	back.Set("request_id", requestID)
	back.Set("token", token)
	returnURL.RawQuery = back.Encode()

	http.Redirect(w, r, returnURL.String(), http.StatusFound)
}

func (s *Server) GetPayment(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	s.mu.RLock()
	conf, ok := s.payments[token]
	s.mu.RUnlock()

	if !ok {
		respondError(w, http.StatusNotFound, "payment not found")
		return
	}
	respondJSON(w, http.StatusOK, conf)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
