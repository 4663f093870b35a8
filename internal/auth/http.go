// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangashelf/internal/platform/middleware"
	requestutil "github.com/taibuivan/mangashelf/internal/platform/request"
	"github.com/taibuivan/mangashelf/internal/platform/respond"
	"github.com/taibuivan/mangashelf/internal/platform/validate"
)

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches the auth endpoints to the v1 router.
//
// # Endpoints
//   - POST /auth/login : Exchanges credentials for a JWT.
//   - GET  /auth/me    : Echoes the caller's claims.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Route("/auth", func(router chi.Router) {
		router.Post("/login", handler.login)
		router.With(middleware.RequireAuth).Get("/me", handler.me)
	})
}

// loginRequest represents the JSON payload expected for authentication.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login handles POST /api/v1/auth/login requests.
//
// # Returns
//   - Writes HTTP 200 OK with the access token and account.
//   - Writes HTTP 400 Bad Request when a field is missing.
//   - Writes HTTP 401 Unauthorized for bad credentials.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("username", input.Username).Required("password", input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Login(request.Context(), LoginInput{
		Username:  input.Username,
		Password:  input.Password,
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

// me handles GET /api/v1/auth/me requests.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	claims := requestutil.Claims(request)
	respond.OK(writer, map[string]string{
		"id":       claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}
