package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/courierbill/internal/billing"
	"github.com/JonMunkholm/courierbill/internal/logging"
	"github.com/JonMunkholm/courierbill/internal/sheet"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart body is buffered in memory;
// larger uploads spill to temporary files.
const multipartMemory = 8 << 20

// JobIDHeader carries the ID of the billing run that produced a response.
const JobIDHeader = "X-Billing-Job-ID"

var errNoFile = &billing.InputError{Msg: "No file provided"}

// handleUpload prices the uploaded workbook for the courier in the path.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.processUpload(w, r, chi.URLParam(r, "courier"))
}

// handleFormUpload is the upload page's form target; the courier is a form field.
func (s *Server) handleFormUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondError(w, r, formError(err))
		return
	}
	s.processUpload(w, r, r.FormValue("courier"))
}

func (s *Server) processUpload(w http.ResponseWriter, r *http.Request, courier string) {
	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			s.respondError(w, r, formError(err))
			return
		}
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	ctx := r.Context()
	result, err := s.processor.Process(ctx, courier, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(logging.WithJobID(ctx, result.JobID),
		"courier", result.Courier,
		"rows", result.Rows,
	).Info("billing output sent")

	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set(JobIDHeader, result.JobID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		logging.FromContext(ctx).Warn("write billing output", "error", err)
	}
}

// formError keeps size violations distinct from malformed bodies.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return &billing.InputError{Msg: "Invalid upload form", Err: err}
}

// CourierInfo is the public description of a courier.
type CourierInfo struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Columns []string `json:"columns"`
}

func courierInfos() []CourierInfo {
	couriers := billing.Couriers()
	infos := make([]CourierInfo, len(couriers))
	for i, c := range couriers {
		infos[i] = CourierInfo{Key: c.Key, Label: c.Label, Columns: c.Columns}
	}
	return infos
}

// handleListCouriers returns every registered courier.
func (s *Server) handleListCouriers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, courierInfos())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, "")
}
