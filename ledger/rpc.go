package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/daminals/orcanet-go/marketplace"
)

// Server exposes the Ledger RPC surface over HTTP/JSON. The
// original design leaves ledger RPC transport unspecified; this module picks
// the same httprouter-based HTTP/JSON stack the chunk-transfer server uses
// rather than a separate transport, so the two servers share one mental
// model end to end.
type Server struct {
	svc     *Service
	Handler http.Handler
}

// NewServer builds a Server around svc.
func NewServer(svc *Service) *Server {
	s := &Server{svc: svc}
	router := httprouter.New()
	router.POST("/CreateInvoice", s.handleCreateInvoice)
	router.GET("/GetInvoice/:id", s.handleGetInvoice)
	router.POST("/PayInvoice", s.handlePayInvoice)
	router.GET("/GetBalance/:wallet", s.handleGetBalance)
	s.Handler = router
	return s
}

type rpcError struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(obj)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case marketplace.IsNotFound(err):
		code = http.StatusNotFound
	case errorIs(err, marketplace.ErrInvalidSignature):
		code = http.StatusUnauthorized
	case errorIs(err, marketplace.ErrAlreadyPaid), errorIs(err, marketplace.ErrOverpayment),
		errorIs(err, marketplace.ErrInsufficientFunds), errorIs(err, marketplace.ErrInvalidInvoiceArgs):
		code = http.StatusBadRequest
	}
	writeJSON(w, code, rpcError{Message: err.Error()})
}

func errorIs(err, target error) bool {
	return err == target
}

type createInvoiceRequest struct {
	Amount float64 `json:"amount"`
	Wallet string  `json:"wallet"`
}

type createInvoiceResponse struct {
	InvoiceID string `json:"invoice_id"`
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, marketplace.ErrInvalidInvoiceArgs)
		return
	}
	id, err := s.svc.CreateInvoice(req.Amount, req.Wallet)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createInvoiceResponse{InvoiceID: id})
}

type getInvoiceResponse struct {
	Amount     float64 `json:"amount"`
	AmountPaid float64 `json:"amount_paid"`
	Paid       bool    `json:"paid"`
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	inv, err := s.svc.GetInvoice(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, getInvoiceResponse{Amount: inv.Amount, AmountPaid: inv.AmountPaid, Paid: inv.Paid})
}

type payInvoiceRequest struct {
	InvoiceID    string   `json:"invoice_id"`
	PayerWallet  string   `json:"payer_wallet"`
	Amount       *float64 `json:"amount,omitempty"`
	PublicKeyHex string   `json:"pubkey_hex"`
	SignatureHex string   `json:"signature_hex"`
}

type payInvoiceResponse struct {
	Paid bool `json:"paid"`
}

func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req payInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, marketplace.ErrInvalidInvoiceArgs)
		return
	}
	pub, err := hex.DecodeString(req.PublicKeyHex)
	if err != nil {
		writeError(w, marketplace.ErrInvalidSignature)
		return
	}
	sig, err := hex.DecodeString(req.SignatureHex)
	if err != nil {
		writeError(w, marketplace.ErrInvalidSignature)
		return
	}

	payment := SignedPayment{
		InvoiceID:   req.InvoiceID,
		PayerWallet: req.PayerWallet,
		PublicKey:   ed25519.PublicKey(pub),
		Signature:   sig,
	}
	if req.Amount != nil {
		payment.Amount = *req.Amount
		payment.HasAmount = true
	}

	if err := s.svc.PayInvoice(payment); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payInvoiceResponse{Paid: true})
}

type getBalanceResponse struct {
	Balance float64 `json:"balance"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	writeJSON(w, http.StatusOK, getBalanceResponse{Balance: s.svc.GetBalance(ps.ByName("wallet"))})
}
