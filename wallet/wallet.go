// Package wallet implements a single Ed25519
// keypair persisted as PKCS#8, exposed through the same create_invoice /
// pay_invoice / check_invoice / get_balance surface as the ledger, but
// signing on the caller's behalf rather than requiring the caller to handle
// raw key material.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"strconv"

	"github.com/NebulousLabs/errors"

	"github.com/daminals/orcanet-go/ledger"
	"github.com/daminals/orcanet-go/persist"
)

// keyMetadata identifies the persisted key file for persist.SaveJSON/LoadJSON.
var keyMetadata = persist.Metadata{Header: "Wallet Private Key", Version: "0.1"}

// keyFile is the on-disk envelope's payload: a PEM-encoded PKCS#8 private
// key, stored as a string so it can ride inside the JSON envelope
// persist.SaveJSON already knows how to write atomically, rather than
// teaching persist about a second, binary-file code path.
type keyFile struct {
	PEM string `json:"pem"`
}

// Wallet holds one Ed25519 keypair and a client to the Ledger RPC surface.
// A Wallet is an ordinary value injected into whatever needs it (the chunk
// server, the CLI); there is no process-wide singleton.
type Wallet struct {
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	client *ledger.Client
}

// Address returns hex(SHA-256(public_key_bytes)), the wallet's address.
func (w *Wallet) Address() string {
	return ledger.WalletAddress(w.pub)
}

// PublicKey returns the wallet's raw Ed25519 public key.
func (w *Wallet) PublicKey() ed25519.PublicKey {
	return w.pub
}

// PrivateKey returns the wallet's raw Ed25519 private key, for callers that
// need to reuse this wallet's identity elsewhere (e.g. as the libp2p host
// identity, so a node's DHT peer ID and wallet address derive from the same
// keypair).
func (w *Wallet) PrivateKey() ed25519.PrivateKey {
	return w.priv
}

// Generate creates a fresh Ed25519 keypair and saves it as PKCS#8 at path.
func Generate(client *ledger.Client, path string) (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	w := &Wallet{priv: priv, pub: pub, client: client}
	if err := w.save(path); err != nil {
		return nil, err
	}
	return w, nil
}

// Load reads a PKCS#8-encoded Ed25519 private key from path.
func Load(client *ledger.Client, path string) (*Wallet, error) {
	var kf keyFile
	if err := persist.LoadJSON(keyMetadata, &kf, path); err != nil {
		return nil, errors.Extend(err, errors.New("wallet: could not load key file"))
	}
	block, _ := pem.Decode([]byte(kf.PEM))
	if block == nil {
		return nil, errors.New("wallet: key file does not contain a PEM block")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("wallet: key file does not contain an Ed25519 key")
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("wallet: could not derive public key")
	}
	return &Wallet{priv: priv, pub: pub, client: client}, nil
}

// LoadOrGenerate loads the key at path if it exists, generating and saving a
// new one otherwise. A key file that exists but cannot be loaded is reported
// as an error and left in place.
func LoadOrGenerate(client *ledger.Client, path string) (*Wallet, error) {
	if _, err := os.Stat(path); err == nil {
		return Load(client, path)
	}
	return Generate(client, path)
}

func (w *Wallet) save(path string) error {
	der, err := x509.MarshalPKCS8PrivateKey(w.priv)
	if err != nil {
		return err
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return persist.SaveJSON(keyMetadata, keyFile{PEM: string(pem.EncodeToMemory(block))}, path)
}

// CreateInvoice asks the ledger to create an invoice for amount owed to this
// wallet.
func (w *Wallet) CreateInvoice(amount float64) (string, error) {
	return w.client.CreateInvoice(amount, w.Address())
}

// CheckInvoice fetches the current state of invoiceID.
func (w *Wallet) CheckInvoice(invoiceID string) (ledger.InvoiceSnapshot, error) {
	return w.client.GetInvoice(invoiceID)
}

// GetBalance returns this wallet's current ledger balance.
func (w *Wallet) GetBalance() (float64, error) {
	return w.client.GetBalance(w.Address())
}

// PayInvoice signs invoiceID ∥ self_wallet ∥ amount?_decimal with this
// wallet's private key and submits the payment to the ledger. amount is nil
// to pay the invoice's remainder.
func (w *Wallet) PayInvoice(invoiceID string, amount *float64) error {
	// Byte layout must match the ledger's verification exactly: invoice_id
	// first, then payer_wallet, then the optional amount. signedMessage in the ledger
	// package is unexported, so the concatenation is duplicated here; both
	// sides must stay byte-for-byte identical.
	msg := invoiceID + w.Address()
	hasAmount := amount != nil
	if hasAmount {
		msg += strconv.FormatFloat(*amount, 'f', -1, 64)
	}
	sig := ed25519.Sign(w.priv, []byte(msg))

	args := ledger.PayInvoiceArgs{
		InvoiceID:   invoiceID,
		PayerWallet: w.Address(),
		PublicKey:   w.pub,
		Signature:   sig,
	}
	if hasAmount {
		args.Amount = amount
	}
	return w.client.PayInvoice(args)
}
