package api

import (
	"net/http"

	"github.com/ecovalle/recolecta/auth"
	"github.com/ecovalle/recolecta/core/model"
)

type registerRequest struct {
	Nombre   string `json:"nombre"`
	Correo   string `json:"correo"`
	Password string `json:"password"`
	Rol      string `json:"rol"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	rol := model.RoleCiudadano
	if body.Rol != "" {
		parsed, err := model.ParseRole(body.Rol)
		if err != nil {
			writeError(w, err)
			return
		}
		rol = parsed
	}
	u, err := h.Auth.Register(r.Context(), body.Nombre, body.Correo, body.Password, rol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type loginRequest struct {
	Correo   string `json:"correo"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string             `json:"token"`
	Usuario *model.Participant `json:"usuario"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	token, u, err := h.Auth.Login(r.Context(), body.Correo, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Usuario: u})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	h.Auth.Logout(auth.BearerToken(r.Header.Get("Authorization")))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
