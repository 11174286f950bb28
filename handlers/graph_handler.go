package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"connect3-server/middleware"
	"connect3-server/models"
	"connect3-server/services"
	"connect3-server/utils/errors"
	"connect3-server/utils/phone"
)

// DefaultEgoDegrees is the hop bound used when the caller does not pass one.
// Traversal cost grows combinatorially with this value; stay at 6 or below.
const DefaultEgoDegrees = 6

type GraphHandler struct {
	graphService *services.GraphService
}

// ConnectionsResponse is the wire shape shared by the endpoints that return a
// list of users: direct connections and shortest-path chains.
type ConnectionsResponse struct {
	Connections []models.UserSummary `json:"connections"`
	Count       int                  `json:"count"`
}

func NewGraphHandler(graphService *services.GraphService) *GraphHandler {
	return &GraphHandler{graphService: graphService}
}

// Connect creates a friendship between the authenticated user and the phone
// number in the request body.
func (h *GraphHandler) Connect(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r)
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	var input struct {
		Phonenumber string `json:"phonenumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	receiver, err := phone.Normalize(input.Phonenumber)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	result, err := h.graphService.Connect(r.Context(), identity, receiver)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// ShortestPath returns the minimal chain of users linking the authenticated
// user to the phone number in the path.
func (h *GraphHandler) ShortestPath(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r)
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	receiver, err := phone.Normalize(mux.Vars(r)["phonenumber"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	path, err := h.graphService.ShortestPath(r.Context(), identity, receiver)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	response := ConnectionsResponse{
		Connections: path.Connections,
		Count:       path.NumConnections(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Connections lists the authenticated user's direct connections.
func (h *GraphHandler) Connections(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r)
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	connections, err := h.graphService.Connections(r.Context(), identity)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	response := ConnectionsResponse{
		Connections: connections.Connections,
		Count:       connections.NumConnections(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// EgoGraph returns the subgraph around the authenticated user, bounded by the
// degrees query parameter.
func (h *GraphHandler) EgoGraph(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r)
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	degrees := DefaultEgoDegrees
	if raw := r.URL.Query().Get("degrees"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteError(w, errors.ErrInvalidInput)
			return
		}
		degrees = parsed
	}

	graph, err := h.graphService.EgoNetwork(r.Context(), identity, degrees)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(graph)
}
