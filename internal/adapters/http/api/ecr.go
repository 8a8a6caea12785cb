package api

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/gridcast/internal/adapters/source/fantasypros"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/pkg/logger"
)

// ECRHandler accepts weekly ECR tables.
type ECRHandler struct {
	deps ECRDependencies
	log  logger.Logger
}

// NewECRHandler creates a new ECR upload handler.
func NewECRHandler(deps ECRDependencies, log logger.Logger) *ECRHandler {
	return &ECRHandler{deps: deps, log: log}
}

// HandleUpload handles POST /ecr. The body is either a JSON ECRUpload or
// a FantasyPros ECR CSV export with week and upload_id in the query.
func (h *ECRHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_ecr"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var (
		up  model.ECRUpload
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv", "text/plain":
		up, err = h.fromCSV(w, r)
	default:
		err = decodeJSON(w, r, &up)
	}
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.UploadECR(r.Context(), up)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	status := http.StatusAccepted
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *ECRHandler) fromCSV(w http.ResponseWriter, r *http.Request) (model.ECRUpload, error) {
	q := r.URL.Query()
	week, err := strconv.Atoi(strings.TrimSpace(q.Get("week")))
	if err != nil {
		return model.ECRUpload{}, fmt.Errorf("week query parameter: %w", err)
	}
	entries, report, err := fantasypros.ParseECR(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return model.ECRUpload{}, err
	}
	if report.Skipped > 0 {
		h.log.Debug(r.Context(), "ecr upload rows skipped",
			logger.Int("week", week),
			logger.Int("skipped", report.Skipped))
	}
	return model.ECRUpload{ID: q.Get("upload_id"), Week: week, Entries: entries}, nil
}
