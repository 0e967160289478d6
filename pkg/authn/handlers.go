// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authn

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	httpTypes "github.com/canonical/auth-service/internal/http/types"
	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/pkg/authentication"
	"github.com/canonical/auth-service/pkg/identity"
	"github.com/canonical/auth-service/pkg/token"
)

type SignupRequest struct {
	TenantID  string `json:"tenantId"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LoginRequest struct {
	TenantID string `json:"tenantId"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type FederatedRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type API struct {
	tenantID string
	service  ServiceInterface
	validate *validator.Validate

	logger logging.LoggerInterface
}

func NewAPI(tenantID string, service ServiceInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.tenantID = tenantID
	a.service = service
	a.validate = validator.New(validator.WithRequiredStructEnabled())
	a.logger = logger

	return a
}

// RegisterEndpoints mounts the unauthenticated flows.
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Post("/auth/signup", a.signup)
	mux.Post("/auth/login", a.login)
	mux.Post("/auth/refresh", a.refresh)
	mux.Post("/auth/federated", a.federated)
	mux.Get("/auth/keys", a.publicKey)
}

// RegisterProtectedEndpoints mounts the flows that require a verified
// bearer token. The caller wraps the router with the authentication
// middleware.
func (a *API) RegisterProtectedEndpoints(mux chi.Router) {
	mux.Get("/auth/me", a.whoAmI)
	mux.Delete("/auth/me", a.deleteMe)
	mux.Get("/auth/whoami", a.whoAmI)
	mux.Get("/auth/profiles", a.profiles)
	mux.Get("/auth/{accountId}/exchange", a.exchange)
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	request := new(SignupRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	tenantID := request.TenantID
	if tenantID == "" {
		tenantID = a.tenantID
	}

	credentials, err := a.service.Signup(r.Context(), tenantID, request.Email, request.Password, request.FirstName, request.LastName)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusCreated, credentials)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	request := new(LoginRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	tenantID := request.TenantID
	if tenantID == "" {
		tenantID = a.tenantID
	}

	pair, err := a.service.Login(r.Context(), tenantID, request.Email, request.Password)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, pair)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	request := new(RefreshRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.service.Refresh(r.Context(), request.RefreshToken)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, pair)
}

func (a *API) federated(w http.ResponseWriter, r *http.Request) {
	request := new(FederatedRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.service.FederatedLogin(r.Context(), request.IDToken)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, pair)
}

func (a *API) exchange(w http.ResponseWriter, r *http.Request) {
	principal, ok := authentication.PrincipalFromContext(r.Context())
	if !ok {
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pair, err := a.service.Exchange(r.Context(), principal, chi.URLParam(r, "accountId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, pair)
}

func (a *API) whoAmI(w http.ResponseWriter, r *http.Request) {
	principal, ok := authentication.PrincipalFromContext(r.Context())
	if !ok {
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := a.service.WhoAmI(r.Context(), principal)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, user)
}

func (a *API) deleteMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := authentication.PrincipalFromContext(r.Context())
	if !ok {
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := a.service.DeleteUser(r.Context(), principal); err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, nil)
}

func (a *API) profiles(w http.ResponseWriter, r *http.Request) {
	principal, ok := authentication.PrincipalFromContext(r.Context())
	if !ok {
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := a.service.WhoAmI(r.Context(), principal)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, user.Profiles)
}

func (a *API) publicKey(w http.ResponseWriter, r *http.Request) {
	pem, err := a.service.PublicKey()
	if err != nil {
		if errors.Is(err, token.ErrNoPublicKey) {
			httpTypes.WriteErrorResponse(w, http.StatusNotFound, "no public key configured")
			return
		}
		a.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(pem))
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrUserExists):
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, ErrUserExists.Error())
	case errors.Is(err, token.ErrInvalidToken):
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, ErrFederatedTokenRejected):
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, ErrFederatedTokenRejected.Error())
	case errors.Is(err, identity.ErrInvalidProfile):
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, identity.ErrInvalidProfile.Error())
	case errors.Is(err, token.ErrTenantMismatch):
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "Invalid Tenant")
	case errors.Is(err, ErrFederationDisabled):
		httpTypes.WriteErrorResponse(w, http.StatusNotImplemented, ErrFederationDisabled.Error())
	default:
		a.logger.Errorf("authentication operation failed: %v", err)
		httpTypes.WriteErrorResponse(w, http.StatusInternalServerError, "internal server error")
	}
}
