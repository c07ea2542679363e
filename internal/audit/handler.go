package audit

import (
	"fmt"
	"libraloan/internal/httpx"
	"net/http"
)

type Handler struct {
	auditor *Auditor
}

func NewHandler(a *Auditor) *Handler {
	return &Handler{auditor: a}
}

// HandleAudit runs the counter checks and returns the result. Drift is
// reported in the body; the request itself still succeeds.
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	res, err := h.auditor.Run(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	msg := fmt.Sprintf("All %d books are consistent.", res.Books)
	switch {
	case !res.Healthy:
		msg = fmt.Sprintf("Found %d failed checks and %d drifting books.", len(res.Violations), len(res.Drifts))
	case len(res.Drifts) > 0:
		msg = fmt.Sprintf("All %d books pass; %d have copies out with no loan on record.", res.Books, len(res.Drifts))
	}
	httpx.OK(w, http.StatusOK, msg, httpx.Fields{"audit": res})
}
