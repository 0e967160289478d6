// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package accounts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	httpTypes "github.com/canonical/auth-service/internal/http/types"
	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/types"
	"github.com/canonical/auth-service/pkg/authentication"
)

type CreateAccountRequest struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"omitempty,oneof=MANUFACTURER FAMILY DEPARTMENT DEFAULT GEO VIRTUAL GROUP OTHER"`
}

type UpdateAccountRequest struct {
	Name string `json:"name" validate:"omitempty,min=1"`
	Type string `json:"type" validate:"omitempty,oneof=MANUFACTURER FAMILY DEPARTMENT DEFAULT GEO VIRTUAL GROUP OTHER"`
}

type RoleRequest struct {
	Name string `json:"name" validate:"required"`
}

type API struct {
	service  ServiceInterface
	validate *validator.Validate

	logger logging.LoggerInterface
}

func NewAPI(service ServiceInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.service = service
	a.validate = validator.New(validator.WithRequiredStructEnabled())
	a.logger = logger

	return a
}

// RegisterEndpoints mounts the tenant-scoped account surface. The caller is
// expected to guard the subtree with authentication and tenant checks.
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Post("/{tenantId}/accounts", a.createAccount)
	mux.Get("/{tenantId}/accounts", a.listAccounts)
	mux.Get("/{tenantId}/accounts/{accountId}", a.getAccount)
	mux.Patch("/{tenantId}/accounts/{accountId}", a.updateAccount)
	mux.Delete("/{tenantId}/accounts/{accountId}", a.deleteAccount)

	mux.Post("/{tenantId}/accounts/{accountId}/roles", a.addRole)
	mux.Get("/{tenantId}/accounts/{accountId}/roles", a.listRoles)
	mux.Patch("/{tenantId}/accounts/{accountId}/roles", a.updateRoles)
	mux.Delete("/{tenantId}/accounts/{accountId}/roles", a.deleteRoles)

	mux.Put("/{tenantId}/roles/{roleId}/users/{userId}", a.assignRole)
	mux.Delete("/{tenantId}/roles/{roleId}/users/{userId}", a.unassignRole)
	mux.Get("/{tenantId}/users/{userId}/accounts", a.listUserAccounts)
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := authentication.PrincipalFromContext(r.Context())
	if !ok {
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	request := new(CreateAccountRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := a.service.CreateAccount(
		r.Context(),
		chi.URLParam(r, "tenantId"),
		&types.Account{Name: request.Name, Type: types.AccountType(request.Type)},
		principal,
	)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusCreated, account)
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.service.ListAccounts(r.Context(), chi.URLParam(r, "tenantId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, accounts)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := a.service.GetAccount(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, account)
}

func (a *API) updateAccount(w http.ResponseWriter, r *http.Request) {
	request := new(UpdateAccountRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	account := &types.Account{ID: chi.URLParam(r, "accountId")}
	paths := make([]string, 0, 2)
	if request.Name != "" {
		account.Name = request.Name
		paths = append(paths, "name")
	}
	if request.Type != "" {
		account.Type = types.AccountType(request.Type)
		paths = append(paths, "type")
	}

	if err := a.service.UpdateAccount(r.Context(), account, paths); err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, account)
}

func (a *API) deleteAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := authentication.PrincipalFromContext(r.Context())
	if !ok {
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := a.service.DeleteAccount(r.Context(), chi.URLParam(r, "accountId"), principal); err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, nil)
}

func (a *API) addRole(w http.ResponseWriter, r *http.Request) {
	request := new(RoleRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := a.service.AddRole(
		r.Context(),
		chi.URLParam(r, "tenantId"),
		chi.URLParam(r, "accountId"),
		request.Name,
	)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusCreated, role)
}

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.service.FindRoles(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, roles)
}

func (a *API) updateRoles(w http.ResponseWriter, r *http.Request) {
	request := new(RoleRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(request); err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := a.service.UpdateAllRoles(r.Context(), chi.URLParam(r, "accountId"), request.Name)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, map[string]int64{"count": count})
}

func (a *API) deleteRoles(w http.ResponseWriter, r *http.Request) {
	count, err := a.service.DeleteRoles(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, map[string]int64{"count": count})
}

func (a *API) assignRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleId"), 10, 64)
	if err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid role ID")
		return
	}

	if err := a.service.AssignRoleToUser(r.Context(), chi.URLParam(r, "userId"), roleID); err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, nil)
}

func (a *API) unassignRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleId"), 10, 64)
	if err != nil {
		httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "invalid role ID")
		return
	}

	if err := a.service.UnassignRoleFromUser(r.Context(), chi.URLParam(r, "userId"), roleID); err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, nil)
}

func (a *API) listUserAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.service.ListUserAccounts(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	httpTypes.WriteResponse(w, http.StatusOK, accounts)
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, ErrNotFound):
		httpTypes.WriteErrorResponse(w, http.StatusNotFound, "account not found")
	case errors.Is(err, ErrRoleNotFound):
		httpTypes.WriteErrorResponse(w, http.StatusNotFound, "role not found")
	default:
		a.logger.Errorf("account operation failed: %v", err)
		httpTypes.WriteErrorResponse(w, http.StatusInternalServerError, "internal server error")
	}
}
