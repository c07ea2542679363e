// internal/membership/handler.go
package membership

import (
	"fmt"
	"libraloan/internal/httpx"
	"net/http"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	member, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, fmt.Sprintf("Welcome, %s.", displayName(member)), httpx.Fields{"member": member})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	session, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, fmt.Sprintf("Logged in as %s.", session.Member.Email), httpx.Fields{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"member":     session.Member,
	})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.MustActor(w, r)
	if !ok {
		return
	}
	member, err := h.service.GetMember(r.Context(), actor.ID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", httpx.Fields{"member": member})
}

func (h *Handler) HandleSetAvatar(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.MustActor(w, r)
	if !ok {
		return
	}
	var req struct {
		Avatar string `json:"avatar"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	member, err := h.service.SetAvatar(r.Context(), actor.ID, req.Avatar)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Avatar updated.", httpx.Fields{"member": member})
}

func displayName(m *Member) string {
	if m.Name != "" {
		return m.Name
	}
	return m.Email
}
