package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"connect3-server/middleware"
	"connect3-server/services"
	"connect3-server/utils/errors"
	"connect3-server/utils/phone"
)

type UserHandler struct {
	userService *services.UserService
	authService *services.AuthService
}

func NewUserHandler(userService *services.UserService, authService *services.AuthService) *UserHandler {
	return &UserHandler{userService: userService, authService: authService}
}

// CreateUser creates a user record for a phone number. With a name and
// password it creates a verified user; with neither it anchors an unverified
// placeholder, e.g. to attach a connection invite to a number that has not
// signed up yet.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string `json:"name"`
		Phonenumber string `json:"phonenumber"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	phonenumber, err := phone.Normalize(input.Phonenumber)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	passwordHash := ""
	if input.Password != "" {
		passwordHash, err = h.authService.HashPassword(input.Password)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
	}

	user, err := h.userService.Upsert(r.Context(), input.Name, phonenumber, passwordHash)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// Me returns the authenticated user's record.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r)
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	user, err := h.userService.Find(r.Context(), identity)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if user == nil {
		middleware.WriteError(w, errors.ErrNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Search looks up a user by phone number.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	phonenumber, err := phone.Normalize(mux.Vars(r)["phonenumber"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	user, err := h.userService.Find(r.Context(), phonenumber)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if user == nil {
		middleware.WriteError(w, errors.ErrNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}
