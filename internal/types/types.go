// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"time"
)

// AccountType classifies accounts within a tenant.
type AccountType string

const (
	AccountTypeManufacturer AccountType = "MANUFACTURER"
	AccountTypeFamily       AccountType = "FAMILY"
	AccountTypeDepartment   AccountType = "DEPARTMENT"
	AccountTypeDefault      AccountType = "DEFAULT"
	AccountTypeGeo          AccountType = "GEO"
	AccountTypeVirtual      AccountType = "VIRTUAL"
	AccountTypeGroup        AccountType = "GROUP"
	AccountTypeOther        AccountType = "OTHER"
)

// AccessType is the OAuth access type requested for a user.
type AccessType string

const (
	AccessTypeOnline  AccessType = "online"
	AccessTypeOffline AccessType = "offline"
)

type User struct {
	ID               string     `db:"id" json:"id"`
	TenantID         string     `db:"tenant_id" json:"tenantId"`
	Email            string     `db:"email" json:"email"`
	Username         string     `db:"username" json:"username"`
	FirstName        string     `db:"first_name" json:"firstName"`
	LastName         string     `db:"last_name" json:"lastName"`
	AccessType       AccessType `db:"access_type" json:"accessType,omitempty"`
	DefaultAccountID string     `db:"default_account_id" json:"defaultAccountId,omitempty"`
	EmailVerified    bool       `db:"email_verified" json:"emailVerified"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`

	// Profiles carries the linked federated identities when requested.
	Profiles []*UserIdentity `json:"profiles,omitempty"`
}

// UserCredentials is keyed by the user's email, which doubles as the
// natural lookup key at login time.
type UserCredentials struct {
	ID       string `db:"id" json:"id"`
	Password string `db:"password" json:"-"`
	UserID   string `db:"user_id" json:"userId"`
}

// UserIdentity is a federated profile linked to a local user. Its ID is the
// external provider's subject identifier.
type UserIdentity struct {
	ID         string          `db:"id" json:"id"`
	Provider   string          `db:"provider" json:"provider"`
	AuthScheme string          `db:"auth_scheme" json:"authScheme"`
	UserID     string          `db:"user_id" json:"userId"`
	Profile    json.RawMessage `db:"profile" json:"profile"`
	Created    time.Time       `db:"created" json:"created"`
}

type Account struct {
	ID        string      `db:"id" json:"id"`
	TenantID  string      `db:"tenant_id" json:"tenantId"`
	Name      string      `db:"name" json:"name"`
	Type      AccountType `db:"type" json:"type"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

type Role struct {
	ID        int64     `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenantId"`
	Name      string    `db:"name" json:"name"`
	AccountID string    `db:"account_id" json:"accountId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// UserRole joins users to roles.
type UserRole struct {
	ID     int64  `db:"id" json:"id"`
	UserID string `db:"user_id" json:"userId"`
	RoleID int64  `db:"role_id" json:"roleId"`
}

// Principal is the authenticated identity reconstructed from a verified
// token, or assembled at login time before issuing one. Field names are the
// wire contract for token claims.
type Principal struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	TenantID         string   `json:"tenantId"`
	Roles            []string `json:"roles,omitempty"`
	DefaultAccountID string   `json:"defaultAccountId,omitempty"`
	// AccountID is only stamped by the token exchange operation.
	AccountID string `json:"accountId,omitempty"`
}

// TokenPair is the result of login, refresh and exchange operations.
type TokenPair struct {
	User         *Principal `json:"user"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
}
