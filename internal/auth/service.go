// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth signs console users in.

A login checks a bcrypt password and returns an RS256 access token carrying
the account's role. Admin routes verify that token through
middleware.Authenticate and gate on middleware.RequireRole.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/sec"
)

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - username: The username of the account.
	//   - role: The role of the account.
	//   - timeToLive: The duration before the token expires.
	GenerateAccessToken(userID, username, role string, timeToLive time.Duration) (string, error)
}

// Service implements console login.
type Service struct {
	accounts Accounts
	tokens   TokenProvider
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a [Service].
func NewService(accounts Accounts, tokens TokenProvider, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		ttl:      constants.AdminTokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
}

// LoginSession is a successful login.
type LoginSession struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Account     *Account  `json:"account"`
}

// Login validates credentials and issues an access token.
//
// # Returns
//   - A [LoginSession] carrying the signed token.
//   - [apperr.Unauthorized] when the username or password is wrong, without
//     saying which.
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	account, err := service.accounts.FindByUsername(input.Username)
	if err != nil || !sec.CheckPasswordHash(input.Password, account.PasswordHash) {
		service.logger.WarnContext(context, "login_failed",
			slog.String("username", input.Username),
			slog.String("ip", input.IPAddress),
		)
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	token, err := service.tokens.GenerateAccessToken(account.ID, account.Username, string(account.Role), service.ttl)
	if err != nil {
		return nil, fmt.Errorf("auth: token generation failed: %w", err)
	}

	service.logger.InfoContext(context, "login_succeeded",
		slog.String("username", account.Username),
		slog.String("role", string(account.Role)),
		slog.String("ip", input.IPAddress),
	)

	return &LoginSession{
		AccessToken: token,
		ExpiresAt:   service.now().Add(service.ttl).UTC(),
		Account:     account,
	}, nil
}
