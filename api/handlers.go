package api

import (
	"encoding/json"
	"net/http"

	"crate-vision/auth"
	"crate-vision/geo"
	errs "crate-vision/pkg/errors"
)

// handleClients answers GET /clients with all registered clients.
func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	clients, err := s.store.ListClients(r.Context())
	if err != nil {
		s.writeError(w, internalError(err))
		return
	}
	if clients == nil {
		clients = []geo.Client{}
	}
	s.jsonResponse(w, http.StatusOK, clients)
}

// handleNearestClient answers GET /nearest_client?lat=..&lon=.. with the
// closest registered client by great-circle distance.
func (s *Server) handleNearestClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	lat, lon, err := geo.ParseCoords(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	clients, err := s.store.ListClients(r.Context())
	if err != nil {
		s.writeError(w, internalError(err))
		return
	}

	nearest, err := geo.NearestClient(lat, lon, clients)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nearest)
}

// handleEmployees answers GET /employees with all usernames.
func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	usernames, err := s.store.ListEmployees(r.Context())
	if err != nil {
		s.writeError(w, internalError(err))
		return
	}
	if usernames == nil {
		usernames = []string{}
	}
	s.jsonResponse(w, http.StatusOK, usernames)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin answers POST /login. The rejection message is identical
// for unknown user and wrong password so usernames cannot be enumerated.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.KindInvalidInput, "username and password are required", err))
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeError(w, errs.E(errs.KindInvalidInput, "username and password are required"))
		return
	}

	employee, found, err := s.store.EmployeeByUsername(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, internalError(err))
		return
	}
	if !found || !auth.CheckPassword(employee.PasswordHash, req.Password) {
		s.writeError(w, errs.E(errs.KindAuthFailure, "invalid username or password"))
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "login successful"})
}
