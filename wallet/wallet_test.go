package wallet

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/daminals/orcanet-go/ledger"
)

func newTestLedger(t *testing.T) (*ledger.Client, *ledger.Service, func()) {
	t.Helper()
	svc := ledger.New()
	srv := ledger.NewServer(svc)
	ts := httptest.NewServer(srv.Handler)
	return ledger.NewClient(ts.URL), svc, ts.Close
}

func TestGenerateAndLoadRoundTrip(t *testing.T) {
	client, _, closeSrv := newTestLedger(t)
	defer closeSrv()

	path := filepath.Join(t.TempDir(), "wallet.key")
	w1, err := Generate(client, path)
	if err != nil {
		t.Fatal(err)
	}

	w2, err := Load(client, path)
	if err != nil {
		t.Fatal(err)
	}
	if w1.Address() != w2.Address() {
		t.Fatalf("expected loaded wallet to have the same address: %s vs %s", w1.Address(), w2.Address())
	}
}

func TestLoadOrGenerateCreatesOnFirstCall(t *testing.T) {
	client, _, closeSrv := newTestLedger(t)
	defer closeSrv()

	path := filepath.Join(t.TempDir(), "wallet.key")
	w1, err := LoadOrGenerate(client, path)
	if err != nil {
		t.Fatal(err)
	}
	w2, err := LoadOrGenerate(client, path)
	if err != nil {
		t.Fatal(err)
	}
	if w1.Address() != w2.Address() {
		t.Fatal("expected LoadOrGenerate to reuse the persisted key on the second call")
	}
}

func TestWalletCreatePayCheckInvoice(t *testing.T) {
	client, svc, closeSrv := newTestLedger(t)
	defer closeSrv()

	path := filepath.Join(t.TempDir(), "wallet.key")
	creator, err := Generate(client, path)
	if err != nil {
		t.Fatal(err)
	}

	payerPath := filepath.Join(t.TempDir(), "payer.key")
	payer, err := Generate(client, payerPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AddFunds(payer.Address(), 10); err != nil {
		t.Fatal(err)
	}

	invoiceID, err := creator.CreateInvoice(3)
	if err != nil {
		t.Fatal(err)
	}

	if err := payer.PayInvoice(invoiceID, nil); err != nil {
		t.Fatal(err)
	}

	snap, err := creator.CheckInvoice(invoiceID)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Paid {
		t.Fatal("expected invoice to be paid")
	}

	balance, err := creator.GetBalance()
	if err != nil {
		t.Fatal(err)
	}
	if balance != 3 {
		t.Fatalf("expected creator balance 3, got %v", balance)
	}
}
