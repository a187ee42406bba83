package api

import (
	"fmt"
	"net/http"

	"github.com/ecovalle/recolecta/auth"
	"github.com/ecovalle/recolecta/core/model"
)

type balanceResponse struct {
	UsuarioID string  `json:"usuario_id"`
	Puntos    float64 `json:"puntos"`
}

// ownWalletOr403 lets a participant touch only their own wallet; admins may
// touch any.
func ownWalletOr403(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := auth.ParticipantFrom(r.Context())
	userID := r.PathValue("userID")
	if u.Rol != model.RoleAdmin && u.ID != userID {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
		return "", false
	}
	return userID, true
}

func (h *handlers) getWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownWalletOr403(w, r)
	if !ok {
		return
	}
	puntos, err := h.Ledger.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UsuarioID: userID, Puntos: puntos})
}

type puntosRequest struct {
	Puntos float64 `json:"puntos"`
}

func (h *handlers) awardPuntos(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	var body puntosRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	puntos, err := h.Ledger.Award(r.Context(), userID, body.Puntos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UsuarioID: userID, Puntos: puntos})
}

type canjearRequest struct {
	RewardID string `json:"reward_id"`
}

func (h *handlers) canjear(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownWalletOr403(w, r)
	if !ok {
		return
	}
	var body canjearRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.RewardID == "" {
		writeError(w, fmt.Errorf("%w: reward_id is required", model.ErrValidation))
		return
	}
	puntos, err := h.Orch.Redeem(r.Context(), userID, body.RewardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UsuarioID: userID, Puntos: puntos})
}
