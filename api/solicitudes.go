package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ecovalle/recolecta/auth"
	"github.com/ecovalle/recolecta/core/model"
)

type createSolicitudRequest struct {
	TipoMaterial string  `json:"tipo_material"`
	Cantidad     float64 `json:"cantidad"`
	Descripcion  string  `json:"descripcion"`
	Latitud      float64 `json:"latitud"`
	Longitud     float64 `json:"longitud"`
	Direccion    string  `json:"direccion"`
}

func (h *handlers) createSolicitud(w http.ResponseWriter, r *http.Request) {
	u := auth.ParticipantFrom(r.Context())
	var body createSolicitudRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req := &model.Request{
		ID:             uuid.NewString(),
		UsuarioID:      u.ID,
		TipoMaterial:   body.TipoMaterial,
		Cantidad:       body.Cantidad,
		Descripcion:    body.Descripcion,
		Latitud:        body.Latitud,
		Longitud:       body.Longitud,
		Direccion:      body.Direccion,
		Estado:         model.StatePendiente,
		FechaSolicitud: time.Now().UTC(),
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.CreateRequest(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	h.Orch.NotifyCreated(req)
	writeJSON(w, http.StatusCreated, req)
}

func (h *handlers) listSolicitudes(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Store.ListRequests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if estado := r.URL.Query().Get("estado"); estado != "" {
		parsed, err := model.ParseRequestState(estado)
		if err != nil {
			writeError(w, err)
			return
		}
		filtered := reqs[:0]
		for _, req := range reqs {
			if req.Estado == parsed {
				filtered = append(filtered, req)
			}
		}
		reqs = filtered
	}
	if reqs == nil {
		reqs = []model.Request{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *handlers) getSolicitud(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, err := h.Store.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if req == nil {
		writeError(w, fmt.Errorf("%w: request %s", model.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handlers) aceptarSolicitud(w http.ResponseWriter, r *http.Request) {
	u := auth.ParticipantFrom(r.Context())
	req, err := h.Orch.Assign(r.Context(), r.PathValue("id"), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handlers) rechazarSolicitud(w http.ResponseWriter, r *http.Request) {
	u := auth.ParticipantFrom(r.Context())
	if err := h.Orch.Decline(r.Context(), r.PathValue("id"), u.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rechazada"})
}

type estadoRequest struct {
	Estado string `json:"estado"`
}

func (h *handlers) estadoSolicitud(w http.ResponseWriter, r *http.Request) {
	u := auth.ParticipantFrom(r.Context())
	var body estadoRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	estado, err := model.ParseRequestState(body.Estado)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := h.Orch.UpdateStatus(r.Context(), r.PathValue("id"), u.ID, estado)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type completarRequest struct {
	Material string  `json:"material"`
	PesoKg   float64 `json:"peso_kg"`
	FotoURL  string  `json:"foto_url"`
	Latitud  float64 `json:"latitud"`
	Longitud float64 `json:"longitud"`
}

type completarResponse struct {
	SolicitudID string  `json:"solicitud_id"`
	Puntos      float64 `json:"puntos"`
}

func (h *handlers) completarSolicitud(w http.ResponseWriter, r *http.Request) {
	u := auth.ParticipantFrom(r.Context())
	var body completarRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	puntos, err := h.Orch.Complete(r.Context(), id, u.ID, model.Evidence{
		Material: body.Material,
		PesoKg:   body.PesoKg,
		FotoURL:  body.FotoURL,
		Latitud:  body.Latitud,
		Longitud: body.Longitud,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completarResponse{SolicitudID: id, Puntos: puntos})
}

func (h *handlers) cancelarSolicitud(w http.ResponseWriter, r *http.Request) {
	u := auth.ParticipantFrom(r.Context())
	req, err := h.Orch.UpdateStatus(r.Context(), r.PathValue("id"), u.ID, model.StateCancelada)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
