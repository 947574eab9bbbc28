package transfer

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/NebulousLabs/fastrand"

	"github.com/daminals/orcanet-go/ledger"
	"github.com/daminals/orcanet-go/wallet"
)

// TestPaidDownloadEndToEnd checks that a consumer wallet with
// balance 10.0 downloads a 2 MB file (1 MB chunks) at a price of 1/MB,
// paying incrementally, and ends with consumer balance 8.0, supplier balance
// 2.0, and the invoice marked paid.
func TestPaidDownloadEndToEnd(t *testing.T) {
	ledgerSvc := ledger.New()
	ledgerSrv := ledger.NewServer(ledgerSvc)
	ledgerTS := httptest.NewServer(ledgerSrv.Handler)
	defer ledgerTS.Close()
	ledgerClient := ledger.NewClient(ledgerTS.URL)

	dir := t.TempDir()
	supplierWallet, err := wallet.Generate(ledgerClient, filepath.Join(dir, "supplier.key"))
	if err != nil {
		t.Fatal(err)
	}
	consumerWallet, err := wallet.Generate(ledgerClient, filepath.Join(dir, "consumer.key"))
	if err != nil {
		t.Fatal(err)
	}
	if err := ledgerSvc.AddFunds(consumerWallet.Address(), 10.0); err != nil {
		t.Fatal(err)
	}

	fileSize := int64(2 * bytesPerMB)
	filePath := filepath.Join(dir, "movie.mp4")
	if err := os.WriteFile(filePath, fastrand.Bytes(int(fileSize)), 0644); err != nil {
		t.Fatal(err)
	}

	const fileHash = "deadbeefcafebabe"
	catalog := NewMapCatalog()
	catalog.Add(fileHash, ServedFile{
		Path:       filePath,
		Size:       fileSize,
		Name:       "movie.mp4",
		PricePerMB: 1,
	})

	supplierServer := NewServer(catalog, ledgerClient, supplierWallet.Address(), bytesPerMB)
	supplierTS := httptest.NewServer(supplierServer.Handler)
	defer supplierTS.Close()

	consumer := NewConsumer(supplierTS.URL, fileHash, 1.0, consumerWallet)
	if err := consumer.Start(); err != nil {
		t.Fatal(err)
	}
	if consumer.total != 2.0 {
		t.Fatalf("expected invoice total 2.0, got %v", consumer.total)
	}

	// Chunk 0: pay 1.0, receive 1 MB.
	res, err := consumer.DownloadNext()
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || int64(len(res.Body)) != bytesPerMB {
		t.Fatalf("expected 1 MB chunk 0, got %v", res)
	}

	// Chunk 1: pay the remainder (1.0), receive the last MB.
	res, err = consumer.DownloadNext()
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || int64(len(res.Body)) != bytesPerMB {
		t.Fatalf("expected 1 MB chunk 1, got %v", res)
	}

	// Chunk 2: past EOF, terminal Done signal.
	res, err = consumer.DownloadNext()
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Fatalf("expected nil result (404/Done) for chunk 2, got %v", res)
	}
	if consumer.State() != StateDone {
		t.Fatalf("expected consumer state Done, got %v", consumer.State())
	}

	consumerBalance, err := consumerWallet.GetBalance()
	if err != nil {
		t.Fatal(err)
	}
	if consumerBalance != 8.0 {
		t.Fatalf("expected consumer balance 8.0, got %v", consumerBalance)
	}
	supplierBalance, err := supplierWallet.GetBalance()
	if err != nil {
		t.Fatal(err)
	}
	if supplierBalance != 2.0 {
		t.Fatalf("expected supplier balance 2.0, got %v", supplierBalance)
	}

	snap, err := consumerWallet.CheckInvoice(consumer.invoiceID)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Paid {
		t.Fatal("expected invoice to be fully paid")
	}
}

func TestChunkRequestWithoutTokenIsUnauthorized(t *testing.T) {
	ledgerSvc := ledger.New()
	ledgerSrv := ledger.NewServer(ledgerSvc)
	ledgerTS := httptest.NewServer(ledgerSrv.Handler)
	defer ledgerTS.Close()
	ledgerClient := ledger.NewClient(ledgerTS.URL)

	dir := t.TempDir()
	filePath := filepath.Join(dir, "f.bin")
	if err := os.WriteFile(filePath, fastrand.Bytes(100), 0644); err != nil {
		t.Fatal(err)
	}
	catalog := NewMapCatalog()
	catalog.Add("h", ServedFile{Path: filePath, Size: 100, Name: "f.bin", PricePerMB: 1})

	server := NewServer(catalog, ledgerClient, "supplier-wallet", bytesPerMB)
	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/file/h?chunk=0")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 Unauthorized without a token, got %d", resp.StatusCode)
	}
}
