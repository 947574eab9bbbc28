// Package ledger implements the Ledger Service: wallet
// balances, invoices, and signature-verified partial payments. It plays the
// role the teacher's modules/wallet package plays for Sia, generalized from
// a single local wallet's UTXO set to a multi-tenant balance ledger serving
// RPC callers.
package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/daminals/orcanet-go/marketplace"
)

// Service is the Ledger Service. Its balances and invoices maps share a
// single read-write lock: PayInvoice acquires the lock for its entire
// check-and-update sequence, and no I/O occurs while it is held.
type Service struct {
	mu       sync.RWMutex
	balances map[string]float64
	invoices map[string]*marketplace.Invoice
}

// New returns an empty Service.
func New() *Service {
	return &Service{
		balances: make(map[string]float64),
		invoices: make(map[string]*marketplace.Invoice),
	}
}

// WalletAddress derives a wallet's address: lowercase hex
// of the SHA-256 digest of the raw Ed25519 public key bytes.
func WalletAddress(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])
}

// CreateInvoice records a new invoice for amount owed to creatorWallet and
// returns its ID. It fails only if amount <= 0.
func (s *Service) CreateInvoice(amount float64, creatorWallet string) (string, error) {
	if amount <= 0 {
		return "", marketplace.ErrInvalidInvoiceArgs
	}
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[id] = &marketplace.Invoice{
		ID:            id,
		Amount:        amount,
		CreatorWallet: creatorWallet,
	}
	return id, nil
}

// GetInvoice returns a copy of the invoice with the given id, or
// marketplace.ErrNotFound.
func (s *Service) GetInvoice(id string) (marketplace.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return marketplace.Invoice{}, marketplace.ErrNotFound
	}
	return *inv, nil
}

// GetBalance returns the current balance of wallet (zero if unknown).
func (s *Service) GetBalance(wallet string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[wallet]
}

// AddFunds is an administrative operation that credits wallet directly,
// bypassing the invoice/payment path (used for seeding consumer wallets in
// tests and for operator top-ups).
func (s *Service) AddFunds(wallet string, amount float64) error {
	if amount <= 0 {
		return marketplace.ErrInvalidInvoiceArgs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[wallet] += amount
	return nil
}

// SignedPayment is the payload a caller supplies to PayInvoice: the payment
// terms plus the Ed25519 proof that payerWallet's owner authorized them.
// An absent Amount means "pay the remainder"; HasAmount reports whether
// Amount was supplied, since a plain float64 cannot express absence.
type SignedPayment struct {
	InvoiceID   string
	PayerWallet string
	Amount      float64
	HasAmount   bool
	PublicKey   ed25519.PublicKey
	Signature   []byte
}

// signedMessage reconstructs the exact byte string the wallet signs:
// invoice_id ∥ payer_wallet ∥ amount_decimal_if_present.
func signedMessage(invoiceID, payerWallet string, amount float64, hasAmount bool) []byte {
	msg := invoiceID + payerWallet
	if hasAmount {
		msg += strconv.FormatFloat(amount, 'f', -1, 64)
	}
	return []byte(msg)
}

// verify checks that p.PublicKey hashes to p.PayerWallet and that p.Signature
// is a valid Ed25519 signature over the canonical signed message. It runs
// entirely before any lock is acquired, so signature verification never
// happens while holding the service lock.
func verify(p SignedPayment) error {
	if WalletAddress(p.PublicKey) != p.PayerWallet {
		return marketplace.ErrInvalidSignature
	}
	msg := signedMessage(p.InvoiceID, p.PayerWallet, p.Amount, p.HasAmount)
	if !ed25519.Verify(p.PublicKey, msg, p.Signature) {
		return marketplace.ErrInvalidSignature
	}
	return nil
}

// PayInvoice verifies p's signature and, if the checks pass
// (invoice exists, not already paid, no overpayment, sufficient payer
// balance), atomically transfers funds from the payer to the invoice's
// creator and advances the invoice's paid state.
func (s *Service) PayInvoice(p SignedPayment) error {
	if err := verify(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[p.InvoiceID]
	if !ok {
		return marketplace.ErrNotFound
	}
	if inv.Paid {
		return marketplace.ErrAlreadyPaid
	}

	amount := p.Amount
	if !p.HasAmount {
		amount = inv.Amount - inv.AmountPaid
	}
	if amount <= 0 || inv.AmountPaid+amount > inv.Amount {
		return marketplace.ErrOverpayment
	}
	if s.balances[p.PayerWallet] < amount {
		return marketplace.ErrInsufficientFunds
	}

	s.balances[p.PayerWallet] -= amount
	s.balances[inv.CreatorWallet] += amount
	inv.AmountPaid += amount
	if inv.AmountPaid >= inv.Amount {
		inv.Paid = true
	}
	return nil
}
