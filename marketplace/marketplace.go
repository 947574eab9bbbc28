// Package marketplace defines the data model shared by the dht, market,
// ledger, and transfer packages: the Supplier record, the FileHolders DHT
// value, and the structured error taxonomy that crosses RPC/HTTP boundaries.
// It also holds the key helpers (BuildKey/SplitKey) and the UpdateHolders
// merge function. It plays the role the teacher's modules package plays for
// Sia: a leaf package that imports none of this module's other packages, so
// that dht, market, ledger, and transfer can all depend on it without
// depending on each other.
package marketplace

import (
	"github.com/NebulousLabs/errors"

	"github.com/daminals/orcanet-go/fileinfo"
)

const (
	// ExpirationWindow is the maximum time into the future (in seconds) any
	// holder entry may claim, and the duration register_file extends an
	// existing registration by.
	ExpirationWindow = 3600

	// HoldersNamespace is the DHT key namespace under which FileHolders
	// records are stored.
	HoldersNamespace = "HoldersResponse"
)

// Supplier is a peer that holds a copy of a file and is willing to serve it
// for a price. Equality is by ID; the ID is chosen by the supplier and is not
// authenticated by the DHT.
type Supplier struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	IP    string `json:"ip"`
	Port  int    `json:"port"`
	Price int64  `json:"price"` // price in whole units per MB
}

// Holder pairs a Supplier with the unix-seconds timestamp at which its
// registration expires.
type Holder struct {
	Supplier   Supplier `json:"supplier"`
	Expiration int64    `json:"expiration"`
}

// FileHolders is the DHT value stored under the "HoldersResponse" namespace
// for a given FileInfoHash: the FileInfo all holders share, and the set of
// suppliers currently advertising it.
type FileHolders struct {
	FileInfo fileinfo.FileInfo `json:"file_info"`
	Holders  []Holder          `json:"holders"`
}

// HoldersResponse is returned by CheckHolders: the file's FileInfo and the
// list of suppliers currently serving it, with expirations elided.
type HoldersResponse struct {
	FileInfo fileinfo.FileInfo `json:"file_info"`
	Holders  []Supplier        `json:"holders"`
}

// Invoice tracks a single payment obligation from a consumer to a supplier
// (or, in the general ledger case, from any payer to any creator wallet).
type Invoice struct {
	ID            string  `json:"id"`
	Amount        float64 `json:"amount"`
	AmountPaid    float64 `json:"amount_paid"`
	CreatorWallet string  `json:"creator_wallet"`
	Paid          bool    `json:"paid"`
}

// Error sentinels forming this package's error taxonomy. They are wrapped
// with context via github.com/NebulousLabs/errors and compared with
// errors.Contains at RPC/HTTP boundaries, following the
// ErrHostFault/IsHostsFault pattern the teacher uses in its modules package.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyPaid        = errors.New("invoice already paid")
	ErrOverpayment        = errors.New("payment would exceed invoice amount")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInvalidExpiration  = errors.New("expiration out of the allowed window")
	ErrFileHashMismatch   = errors.New("file_info.file_hash does not match key")
	ErrInvalidInvoiceArgs = errors.New("invalid invoice arguments")
)

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool { return errors.Contains(err, ErrNotFound) }

// IsUnauthorized reports whether err is, or wraps, ErrUnauthorized.
func IsUnauthorized(err error) bool { return errors.Contains(err, ErrUnauthorized) }

// IsForbidden reports whether err is, or wraps, ErrForbidden.
func IsForbidden(err error) bool { return errors.Contains(err, ErrForbidden) }
