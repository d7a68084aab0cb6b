package handler

import (
	"net/http"
	"time"

	"github.com/medkart/pharma-backend/internal/domain/user"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(a *user.Account) userResponse {
	return userResponse{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Role:      string(a.Role),
		CreatedAt: a.CreatedAt,
	}
}

func (h *Handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req user.Registration
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	if err := h.registration.Initiate(r.Context(), req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusAccepted, map[string]string{
		"message": "verification code sent",
	})
}

func (h *Handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registration.Resend(r.Context(), req.Email); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusAccepted, map[string]string{
		"message": "verification code sent",
	})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.registration.Complete(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, authResponse{
		Token: result.Token,
		User:  toUserResponse(result.Account),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.registration.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, authResponse{
		Token: result.Token,
		User:  toUserResponse(result.Account),
	})
}
