package transfer

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/daminals/orcanet-go/ledger"
)

// ServedFile describes one file the supplier's chunk server can serve.
type ServedFile struct {
	Path       string
	Size       int64
	Name       string
	PricePerMB int64
}

// Catalog resolves a FileInfoHash to the file it names. Implementations
// typically wrap the same registration state market.Facade uses, but the
// transfer package depends only on this narrow interface.
type Catalog interface {
	Lookup(fileHash string) (ServedFile, bool)
}

// Server is the supplier's chunk-transfer HTTP server: it issues invoices,
// gates chunk delivery on payment, and streams file bytes once a consumer
// has paid ahead of what it has received.
type Server struct {
	catalog        Catalog
	ledger         *ledger.Client
	supplierWallet string
	chunkSize      int64
	states         *stateRegistry

	Handler http.Handler
}

// NewServer builds a Server. A chunkSize of zero or less is replaced by
// DefaultChunkSize.
func NewServer(catalog Catalog, ledgerClient *ledger.Client, supplierWallet string, chunkSize int64) *Server {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	s := &Server{
		catalog:        catalog,
		ledger:         ledgerClient,
		supplierWallet: supplierWallet,
		chunkSize:      chunkSize,
		states:         newStateRegistry(),
	}
	router := httprouter.New()
	router.GET("/invoice/:hash", s.handleInvoice)
	router.GET("/file/:hash", s.handleFile)
	s.Handler = router
	return s
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hash := ps.ByName("hash")
	file, ok := s.catalog.Lookup(hash)
	if !ok {
		http.Error(w, "file not found", http.StatusInternalServerError)
		return
	}

	totalPrice := float64(ceilMB(file.Size) * file.PricePerMB)
	invoiceID, err := s.ledger.CreateInvoice(totalPrice, s.supplierWallet)
	if err != nil {
		http.Error(w, "failed to create invoice", http.StatusInternalServerError)
		return
	}

	token := s.states.create(hash, invoiceID, file.PricePerMB)

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("X-Access-Token", token)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, invoiceID)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hash := ps.ByName("hash")
	chunk, err := strconv.ParseInt(r.URL.Query().Get("chunk"), 10, 64)
	if err != nil || chunk < 0 {
		chunk = 0
	}

	token := bearerToken(r.Header.Get("Authorization"))
	state := s.states.lookup(hash, token)
	if state == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	file, ok := s.catalog.Lookup(hash)
	if !ok {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	start, end, inRange := chunkByteRange(file.Size, s.chunkSize, chunk)
	if !inRange {
		http.Error(w, "chunk not found", http.StatusNotFound)
		return
	}
	chunkLen := end - start

	invoice, err := s.ledger.GetInvoice(state.InvoiceID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	valueDelivered := valueForBytes(state.BytesDelivered, state.PricePerMB)
	chunkValue := valueForBytes(chunkLen, state.PricePerMB)
	if invoice.AmountPaid < valueDelivered+chunkValue {
		s.states.discard(hash, token)
		http.Error(w, "payment verification failed", http.StatusForbidden)
		return
	}

	f, err := os.Open(file.Path)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(file.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.CopyN(w, f, chunkLen); err != nil {
		// Connection closed mid-stream; nothing left to do but drop the
		// partial write.
		return
	}
	s.states.recordDelivery(hash, token, chunkLen)
}

func bearerToken(authHeader string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(authHeader, prefix) {
		return authHeader[len(prefix):]
	}
	return ""
}
