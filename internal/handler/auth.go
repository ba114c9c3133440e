package handler

import (
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/aTrapDeer/portfolio-api/internal/auth"
	"github.com/aTrapDeer/portfolio-api/internal/payload"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler exchanges the admin password for a bearer token.
type LoginHandler struct {
	auth *auth.Authenticator
	log  *zap.Logger
}

func NewLoginHandler(a *auth.Authenticator, log *zap.Logger) *LoginHandler {
	return &LoginHandler{auth: a, log: log}
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}

	var req loginRequest
	if err := payload.Decode(body, &req); err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"password": {payload.MsgRequired}})
		return
	}

	token, err := h.auth.Login(r.Context(), clientAddr(r), req.Password)
	switch {
	case errors.Is(err, auth.ErrTooManyAttempts):
		writeMessage(w, http.StatusTooManyRequests, "too many login attempts, try again later")
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.log.Warn("login rejected", zap.String("client", clientAddr(r)))
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case err != nil:
		writeError(w, r, h.log, profileEntity, err)
	default:
		writeJSON(w, http.StatusOK, loginResponse{Token: token})
	}
}

// clientAddr is the host part of the remote address. It is the connection
// peer unless the router trusts proxy headers.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
