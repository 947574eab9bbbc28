package market

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/daminals/orcanet-go/fileinfo"
	"github.com/daminals/orcanet-go/marketplace"
)

// Server exposes the Market Facade over HTTP/JSON, matching
// the transport ledger.Server and the chunk-transfer server both use.
type Server struct {
	facade  *Facade
	Handler http.Handler
}

// NewServer builds a Server around facade.
func NewServer(facade *Facade) *Server {
	s := &Server{facade: facade}
	router := httprouter.New()
	router.POST("/RegisterFile", s.handleRegisterFile)
	router.GET("/CheckHolders/:hash", s.handleCheckHolders)
	s.Handler = router
	return s
}

type rpcError struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(obj)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if marketplace.IsNotFound(err) {
		code = http.StatusNotFound
	}
	writeJSON(w, code, rpcError{Message: err.Error()})
}

type registerFileRequest struct {
	Supplier   marketplace.Supplier `json:"supplier"`
	FileInfo   fileinfo.FileInfo    `json:"file_info"`
	Expiration int64                `json:"expiration,omitempty"`
}

type registerFileResponse struct {
	FileInfoHash string `json:"file_info_hash"`
}

func (s *Server) handleRegisterFile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcError{Message: err.Error()})
		return
	}
	if err := s.facade.RegisterFile(r.Context(), req.Supplier, req.FileInfo, req.Expiration); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerFileResponse{FileInfoHash: req.FileInfo.HashString()})
}

func (s *Server) handleCheckHolders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	resp, err := s.facade.CheckHolders(r.Context(), ps.ByName("hash"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
