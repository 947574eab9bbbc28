// Package transfer implements the chunk-transfer protocol: the supplier's
// invoice handshake and payment-gated chunk server, and the consumer's
// auto-pay download state machine. It is grounded on the original
// implementation's peer-node producer/consumer HTTP handlers
// (handle_invoice_request, handle_file_request, get_invoice,
// get_file_chunk), rebuilt on the teacher's httprouter stack.
package transfer

import (
	"encoding/hex"
	"sync"

	"github.com/NebulousLabs/fastrand"
)

// tokenLength is the byte length of a freshly minted access token before hex
// encoding.
const tokenLength = 32

// transferState is the supplier-side bookkeeping record for one
// (file_hash, token) pair.
type transferState struct {
	Token          string
	InvoiceID      string
	PricePerMB     int64
	BytesDelivered int64
}

// stateKey uniquely identifies a transferState.
type stateKey struct {
	FileHash string
	Token    string
}

// stateRegistry is the supplier's in-memory map of outstanding transfers. It
// is a plain reader-writer-locked map, shared across every request goroutine
// the chunk server spawns.
type stateRegistry struct {
	mu     sync.RWMutex
	states map[stateKey]*transferState
}

func newStateRegistry() *stateRegistry {
	return &stateRegistry{states: make(map[stateKey]*transferState)}
}

// newToken mints a fresh bearer token: tokenLength random bytes, hex-encoded
// so the result is alphanumeric and safe to carry in an HTTP header.
func newToken() string {
	return hex.EncodeToString(fastrand.Bytes(tokenLength))
}

// create installs a new transferState for (fileHash, invoiceID, pricePerMB)
// and returns the token the consumer must echo on chunk requests.
func (r *stateRegistry) create(fileHash, invoiceID string, pricePerMB int64) string {
	token := newToken()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[stateKey{FileHash: fileHash, Token: token}] = &transferState{
		Token:      token,
		InvoiceID:  invoiceID,
		PricePerMB: pricePerMB,
	}
	return token
}

// lookup returns the transfer state for (fileHash, token), or nil if none
// exists; callers treat a nil result as unauthorized.
func (r *stateRegistry) lookup(fileHash, token string) *transferState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[stateKey{FileHash: fileHash, Token: token}]
}

// recordDelivery increments bytes_delivered for (fileHash, token) by n.
func (r *stateRegistry) recordDelivery(fileHash, token string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[stateKey{FileHash: fileHash, Token: token}]; ok {
		st.BytesDelivered += n
	}
}

// discard drops the transfer state for (fileHash, token). The chunk handler
// calls this once a token fails payment verification, so a consumer that
// falls behind on payment can't keep probing the same token for free.
func (r *stateRegistry) discard(fileHash, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, stateKey{FileHash: fileHash, Token: token})
}
