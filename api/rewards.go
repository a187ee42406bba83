package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ecovalle/recolecta/core/model"
)

type createRewardRequest struct {
	Nombre      string  `json:"nombre"`
	Descripcion string  `json:"descripcion"`
	CostoPuntos float64 `json:"costo_puntos"`
	Stock       int     `json:"stock"`
}

func (h *handlers) createReward(w http.ResponseWriter, r *http.Request) {
	var body createRewardRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Nombre == "" || body.CostoPuntos <= 0 {
		writeError(w, fmt.Errorf("%w: nombre and a positive costo_puntos are required", model.ErrValidation))
		return
	}
	reward := &model.Reward{
		ID:          uuid.NewString(),
		Nombre:      body.Nombre,
		Descripcion: body.Descripcion,
		CostoPuntos: body.CostoPuntos,
		Stock:       body.Stock,
	}
	if err := h.Store.CreateReward(r.Context(), reward); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

func (h *handlers) listRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.Store.ListRewards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *handlers) getReward(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	reward, err := h.Store.GetReward(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if reward == nil {
		writeError(w, fmt.Errorf("%w: reward %s", model.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

func (h *handlers) deleteReward(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := h.Store.DeleteReward(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if deleted == nil {
		writeError(w, fmt.Errorf("%w: reward %s", model.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}
