// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/sec"
)

// Account is a console login.
type Account struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Role         sec.UserRole `json:"role"`
	PasswordHash string       `json:"-"`
}

// Accounts finds logins by username.
type Accounts interface {
	FindByUsername(username string) (*Account, error)
}

// StaticAccounts is the fixed set of console logins read from configuration.
type StaticAccounts map[string]Account

/*
NewStaticAccounts builds the console logins.

Parameters:
  - adminHash: bcrypt hash of the admin password (required)
  - uploaderHash: bcrypt hash of the uploader password, empty to disable
*/
func NewStaticAccounts(adminHash, uploaderHash string) StaticAccounts {
	accounts := StaticAccounts{
		constants.AdminUserID: {
			ID:           constants.AdminUserID,
			Username:     constants.AdminUserID,
			Role:         sec.RoleAdmin,
			PasswordHash: adminHash,
		},
	}

	if uploaderHash != "" {
		accounts[constants.UploaderUserID] = Account{
			ID:           constants.UploaderUserID,
			Username:     constants.UploaderUserID,
			Role:         sec.RoleUploader,
			PasswordHash: uploaderHash,
		}
	}

	return accounts
}

// FindByUsername returns the account or NOT_FOUND.
func (accounts StaticAccounts) FindByUsername(username string) (*Account, error) {
	account, ok := accounts[username]
	if !ok {
		return nil, apperr.NotFound("Account")
	}
	return &account, nil
}
