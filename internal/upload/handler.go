package upload

import (
	"fmt"
	"libraloan/internal/errs"
	"libraloan/internal/httpx"
	"net/http"
)

const maxUpload = 10 << 20

type Handler struct {
	importer *Importer
}

func NewHandler(importer *Importer) *Handler {
	return &Handler{importer: importer}
}

// HandleUpload accepts a multipart form with a datatype field and a file part.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		httpx.Error(w, r, errs.Rule(errs.ErrValidation, "Expected a multipart form with a file."))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, r, errs.Rule(errs.ErrValidation, "Choose a CSV file to upload."))
		return
	}
	defer file.Close()

	kind := r.FormValue("datatype")
	report, err := h.importer.Import(r.Context(), kind, file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, fmt.Sprintf("%s upload: %s.", kind, report), httpx.Fields{"report": report})
}
