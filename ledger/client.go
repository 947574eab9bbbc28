package ledger

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/NebulousLabs/errors"

	"github.com/daminals/orcanet-go/marketplace"
)

// Client is an HTTP client for the Ledger RPC surface, used by the wallet
// package and by the chunk-transfer supplier server (to create invoices and
// check amount_paid) without depending on the ledger's in-process Service
// type.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client pointed at baseURL (e.g. "http://127.0.0.1:9980").
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: http.DefaultClient}
}

func (c *Client) do(method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var rpcErr rpcError
		_ = json.NewDecoder(resp.Body).Decode(&rpcErr)
		return classifyRPCError(resp.StatusCode, rpcErr.Message)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func classifyRPCError(status int, message string) error {
	switch status {
	case http.StatusNotFound:
		return errors.Extend(marketplace.ErrNotFound, errors.New(message))
	case http.StatusUnauthorized:
		return errors.Extend(marketplace.ErrInvalidSignature, errors.New(message))
	default:
		return fmt.Errorf("ledger rpc error: %s", message)
	}
}

// CreateInvoice calls CreateInvoice{amount, wallet}.
func (c *Client) CreateInvoice(amount float64, wallet string) (string, error) {
	var resp createInvoiceResponse
	err := c.do(http.MethodPost, "/CreateInvoice", createInvoiceRequest{Amount: amount, Wallet: wallet}, &resp)
	return resp.InvoiceID, err
}

// InvoiceSnapshot is the wire-level view of an invoice returned by
// GetInvoice.
type InvoiceSnapshot struct {
	Amount     float64
	AmountPaid float64
	Paid       bool
}

// GetInvoice calls GetInvoice{invoice_id}.
func (c *Client) GetInvoice(invoiceID string) (InvoiceSnapshot, error) {
	var resp getInvoiceResponse
	err := c.do(http.MethodGet, "/GetInvoice/"+invoiceID, nil, &resp)
	return InvoiceSnapshot{Amount: resp.Amount, AmountPaid: resp.AmountPaid, Paid: resp.Paid}, err
}

// GetBalance calls GetBalance{wallet}.
func (c *Client) GetBalance(wallet string) (float64, error) {
	var resp getBalanceResponse
	err := c.do(http.MethodGet, "/GetBalance/"+wallet, nil, &resp)
	return resp.Balance, err
}

// PayInvoiceArgs is the signed payment payload passed across the RPC
// boundary, keeping the raw key/signature bytes separate from their hex
// wire encoding.
type PayInvoiceArgs struct {
	InvoiceID   string
	PayerWallet string
	Amount      *float64
	PublicKey   []byte
	Signature   []byte
}

// PayInvoice calls PayInvoice{invoice_id, payer_wallet, amount?, pubkey_hex,
// signature_hex}.
func (c *Client) PayInvoice(args PayInvoiceArgs) error {
	req := payInvoiceRequest{
		InvoiceID:    args.InvoiceID,
		PayerWallet:  args.PayerWallet,
		Amount:       args.Amount,
		PublicKeyHex: hex.EncodeToString(args.PublicKey),
		SignatureHex: hex.EncodeToString(args.Signature),
	}
	var resp payInvoiceResponse
	err := c.do(http.MethodPost, "/PayInvoice", req, &resp)
	return err
}
