package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/daminals/orcanet-go/fileinfo"
	"github.com/daminals/orcanet-go/marketplace"
)

// Client is an HTTP client for the Market Facade RPC surface, mirroring
// ledger.Client's shape so the two admin surfaces feel the same from the CLI.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client pointed at baseURL (e.g. "http://127.0.0.1:8080").
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
		if resp.StatusCode == http.StatusNotFound {
			return marketplace.ErrNotFound
		}
		return fmt.Errorf("market rpc error: %s", rpcErr.Message)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// RegisterFile calls RegisterFile{supplier, file_info, expiration}.
func (c *Client) RegisterFile(supplier marketplace.Supplier, fi fileinfo.FileInfo, expiration int64) (string, error) {
	req := registerFileRequest{Supplier: supplier, FileInfo: fi, Expiration: expiration}
	var resp registerFileResponse
	err := c.do(http.MethodPost, "/RegisterFile", req, &resp)
	return resp.FileInfoHash, err
}

// CheckHolders calls CheckHolders{file_info_hash}.
func (c *Client) CheckHolders(fileInfoHash string) (marketplace.HoldersResponse, error) {
	var resp marketplace.HoldersResponse
	err := c.do(http.MethodGet, "/CheckHolders/"+fileInfoHash, nil, &resp)
	return resp, err
}
