package handlers

import (
	"encoding/json"
	"net/http"

	"connect3-server/middleware"
	"connect3-server/models"
	"connect3-server/services"
	"connect3-server/utils/errors"
	"connect3-server/utils/phone"
)

type AuthHandler struct {
	authService   *services.AuthService
	verifyService *services.VerifyService
}

func NewAuthHandler(authService *services.AuthService, verifyService *services.VerifyService) *AuthHandler {
	return &AuthHandler{authService: authService, verifyService: verifyService}
}

// SendCode texts an OTP to the given phone number.
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Phonenumber string `json:"phonenumber"`
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

	verification, err := h.verifyService.SendCode(r.Context(), phonenumber)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(verification)
}

// VerifyCode checks an OTP and, when approved, attaches the short-lived
// phone-verification token required by signup.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Phonenumber string `json:"phonenumber"`
		Code        string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Code == "" {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	phonenumber, err := phone.Normalize(input.Phonenumber)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	verification, err := h.verifyService.CheckCode(r.Context(), phonenumber, input.Code)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if verification.Status == services.StatusApproved {
		token, err := h.authService.CreatePhoneVerificationToken(phonenumber)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		verification.PhoneVerificationToken = &models.Token{AccessToken: token, TokenType: "bearer"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(verification)
}

// Signup registers a verified user. The phone-verification token from
// VerifyCode must be presented in the X-Phone-Verification-Token header.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	verificationToken := r.Header.Get("X-Phone-Verification-Token")
	if verificationToken == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

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

	user, err := h.authService.Signup(r.Context(), input.Name, phonenumber, input.Password, verificationToken)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// Token authenticates with phone number and password and returns a session
// token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var input struct {
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

	token, err := h.authService.Login(r.Context(), phonenumber, input.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.Token{AccessToken: token, TokenType: "bearer"})
}
