// Package handler is the HTTP surface of the account lifecycle engine. It
// parses and validates requests, delegates to the service, and maps domain
// errors onto statuses; no business logic lives here.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"greengate/internal/account/service"
	"greengate/internal/transport/http/shared"
	dErrors "greengate/pkg/domain-errors"
)

type AccountService interface {
	RegisterInit(ctx context.Context, req service.RegisterInitRequest) (*service.RegisterInitResult, error)
	VerifyOtp(ctx context.Context, req service.VerifyOtpRequest) (*service.VerifyOtpResult, error)
	ResendOtp(ctx context.Context, username string) (*service.RegisterInitResult, error)
	SetupDetails(ctx context.Context, req service.SetupDetailsRequest) (*service.SetupResult, error)
	GovSignUp(ctx context.Context, req service.GovSignUpRequest) (*service.SetupResult, error)
	Login(ctx context.Context, req service.LoginRequest) (*service.LoginResult, error)
	Activate(ctx context.Context, username string) (*service.ProfileSummary, error)
}

type Handler struct {
	svc    AccountService
	logger *slog.Logger
}

func New(svc AccountService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the public registration and login routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register/init", h.handleRegisterInit)
		r.Post("/register/verify", h.handleVerifyOtp)
		r.Post("/register/resend", h.handleResendOtp)
		r.Post("/register/setup", h.handleSetupDetails)
		r.Post("/register/gov", h.handleGovSignUp)
		r.Post("/login", h.handleLogin)
	})
}

// RegisterAdmin mounts operator-only routes. The caller is expected to
// wrap the router in admin authentication middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/accounts/{username}/activate", h.handleActivate)
}

func (h *Handler) handleRegisterInit(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := validateRegisterInit(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	res, err := h.svc.RegisterInit(r.Context(), req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req service.VerifyOtpRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Username == "" || req.Otp == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "username and otp are required"))
		return
	}

	res, err := h.svc.VerifyOtp(r.Context(), req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidOtp) && res != nil {
			shared.WriteErrorWithAttempts(w, err, &res.RemainingAttempts)
			return
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleResendOtp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Username == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "username is required"))
		return
	}

	res, err := h.svc.ResendOtp(r.Context(), req.Username)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleSetupDetails(w http.ResponseWriter, r *http.Request) {
	var req service.SetupDetailsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Username == "" || req.RoleType == "" || req.Password == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "username, role_type and password are required"))
		return
	}

	res, err := h.svc.SetupDetails(r.Context(), req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGovSignUp(w http.ResponseWriter, r *http.Request) {
	var req service.GovSignUpRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "username and password are required"))
		return
	}

	res, err := h.svc.GovSignUp(r.Context(), req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "email and password are required"))
		return
	}

	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidCredentials) && res != nil {
			shared.WriteErrorWithAttempts(w, err, &res.RemainingAttempts)
			return
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "username is required"))
		return
	}

	res, err := h.svc.Activate(r.Context(), username)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

func validateRegisterInit(req service.RegisterInitRequest) error {
	if strings.TrimSpace(req.NIC) == "" {
		return dErrors.New(dErrors.CodeValidation, "nic is required")
	}
	if strings.TrimSpace(req.Mobile) == "" {
		return dErrors.New(dErrors.CodeValidation, "mobile is required")
	}
	if !govalidator.StringLength(req.Email, "1", "255") || !govalidator.IsEmail(req.Email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	if req.RoleType == "" {
		return dErrors.New(dErrors.CodeValidation, "role_type is required")
	}
	return nil
}
