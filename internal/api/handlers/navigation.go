package handlers

import (
	"context"
	"live-navigation-service/internal/api/dto"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/services"
	"net/http"
)

// Navigator is the session controller surface the HTTP layer drives.
type Navigator interface {
	Start(ctx context.Context, req services.StartRequest) (domain.NavigationSession, error)
	OnPositionUpdate(ctx context.Context, origin domain.Coordinate) error
	SimulateStep(ctx context.Context, steps int) error
	RerouteNow(ctx context.Context) error
	Stop()
	Snapshot() domain.NavigationSession
	History(ctx context.Context) ([]domain.AddressEntry, error)
}

type NavigationHandler struct {
	Nav Navigator
}

func NewNavigationHandler(nav Navigator) *NavigationHandler {
	return &NavigationHandler{Nav: nav}
}

// Start resolves the requested address and begins a navigation session.
func (h *NavigationHandler) Start(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.StartRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	mode, err := domain.ParsePositionMode(req.Mode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	start := services.StartRequest{
		Address:  req.Address,
		Mode:     mode,
		SpeedMps: req.SpeedMps,
	}
	if req.From != nil {
		origin := req.From.Coordinate()
		start.OriginHint = &origin
	}

	session, err := h.Nav.Start(r.Context(), start)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.FromSession(session))
}

func (h *NavigationHandler) Session(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromSession(h.Nav.Snapshot()))
}

func (h *NavigationHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	h.Nav.Stop()
	writeJSON(w, r, http.StatusOK, dto.FromSession(h.Nav.Snapshot()))
}

// Step advances a demo session along its route; steps defaults to 1.
func (h *NavigationHandler) Step(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.StepRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	steps := 1
	if req.Steps != nil {
		steps = *req.Steps
	}

	if err := h.Nav.SimulateStep(r.Context(), steps); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromSession(h.Nav.Snapshot()))
}

func (h *NavigationHandler) Reroute(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.Nav.RerouteNow(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromSession(h.Nav.Snapshot()))
}

// Position applies one live fix pushed by a client over plain HTTP.
func (h *NavigationHandler) Position(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.PositionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	origin := domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
	if err := h.Nav.OnPositionUpdate(r.Context(), origin); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromSession(h.Nav.Snapshot()))
}

// Addresses lists previously navigated addresses, newest first.
func (h *NavigationHandler) Addresses(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	entries, err := h.Nav.History(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.ListAddressResponse{Addresses: make([]dto.AddressResponse, 0, len(entries))}
	for _, e := range entries {
		res.Addresses = append(res.Addresses, dto.AddressResponse{
			ID:        e.ID,
			Address:   e.Address,
			CreatedAt: e.CreatedAt,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
