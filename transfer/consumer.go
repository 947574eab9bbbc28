package transfer

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/daminals/orcanet-go/wallet"
)

// State is the consumer-side download state: Requesting, Done, or Failed.
type State int

const (
	StateRequesting State = iota
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Consumer drives the download of one file from one supplier, auto-paying
// before each chunk request.
type Consumer struct {
	BaseURL       string
	FileHash      string
	PricePerChunk float64
	Wallet        *wallet.Wallet
	HTTPClient    *http.Client

	state     State
	token     string
	invoiceID string
	total     float64
	totalPaid float64
	chunk     int64
}

// NewConsumer builds a Consumer ready to call Start.
func NewConsumer(baseURL, fileHash string, pricePerChunk float64, w *wallet.Wallet) *Consumer {
	return &Consumer{
		BaseURL:       baseURL,
		FileHash:      fileHash,
		PricePerChunk: pricePerChunk,
		Wallet:        w,
		HTTPClient:    http.DefaultClient,
		state:         StateRequesting,
	}
}

// State reports the consumer's current state.
func (c *Consumer) State() State { return c.state }

// fetchInvoice performs GET /invoice/{file_hash} and records the token and
// invoice_id.
func (c *Consumer) fetchInvoice() error {
	resp, err := c.HTTPClient.Get(c.BaseURL + "/invoice/" + c.FileHash)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transfer: invoice request failed with status %d", resp.StatusCode)
	}
	token := resp.Header.Get("X-Access-Token")
	if token == "" {
		return fmt.Errorf("transfer: no access token in invoice response")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	c.token = token
	c.invoiceID = string(body)

	snap, err := c.Wallet.CheckInvoice(c.invoiceID)
	if err != nil {
		return err
	}
	c.total = snap.Amount
	return nil
}

// ChunkResult is what DownloadNext returns to the caller driving the loop.
type ChunkResult struct {
	Body        []byte
	FileName    string
	ContentType string
}

// Start fetches the invoice; it must be called once before DownloadNext.
func (c *Consumer) Start() error {
	if c.invoiceID == "" {
		return c.fetchInvoice()
	}
	return nil
}

// DownloadNext executes one loop iteration of the auto-pay
// consumer state machine: pay for the next chunk (if anything is still
// owed), request it, and report whether the download is done, still in
// progress, or has failed.
func (c *Consumer) DownloadNext() (*ChunkResult, error) {
	if c.state != StateRequesting {
		return nil, fmt.Errorf("transfer: consumer is in terminal state %s", c.state)
	}

	owed := c.PricePerChunk*float64(c.chunk+1) - c.totalPaid
	if remaining := c.total - c.totalPaid; remaining < owed {
		owed = remaining
	}
	if owed > 0 {
		if err := c.Wallet.PayInvoice(c.invoiceID, &owed); err != nil {
			c.state = StateFailed
			return nil, err
		}
		c.totalPaid += owed
	}

	url := fmt.Sprintf("%s/file/%s?chunk=%d", c.BaseURL, c.FileHash, c.chunk)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		c.state = StateFailed
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Network errors: the caller may retry the same chunk without
		// advancing c.chunk or re-paying.
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		c.chunk++
		return &ChunkResult{
			Body:        body,
			FileName:    filenameFromContentDisposition(resp.Header.Get("Content-Disposition")),
			ContentType: resp.Header.Get("Content-Type"),
		}, nil
	case http.StatusNotFound:
		c.state = StateDone
		return nil, nil
	default:
		c.state = StateFailed
		return nil, fmt.Errorf("transfer: chunk request failed with status %d", resp.StatusCode)
	}
}

func filenameFromContentDisposition(header string) string {
	i := strings.Index(header, "filename=")
	if i < 0 {
		return ""
	}
	name := header[i+len("filename="):]
	return strings.Trim(name, `"`)
}

// DownloadAll runs DownloadNext to completion, writing each chunk to
// destPath in order. It stops at the first error or once the transfer
// reaches StateDone.
func (c *Consumer) DownloadAll(destPath string) error {
	if err := c.Start(); err != nil {
		return err
	}
	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	for c.state == StateRequesting {
		result, err := c.DownloadNext()
		if err != nil {
			return err
		}
		if result == nil {
			break // StateDone
		}
		if _, err := f.Write(result.Body); err != nil {
			return err
		}
	}
	if c.state == StateFailed {
		return fmt.Errorf("transfer: download failed")
	}
	return nil
}
