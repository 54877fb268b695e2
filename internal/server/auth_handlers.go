package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loykin/recbridge/internal/auth"
)

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResp struct {
	Token *auth.Token `json:"token"`
}

func (r *Router) handleLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	tok, err := r.auth.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrAuthDisabled):
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
	case err != nil:
		writeJSON(c, http.StatusUnauthorized, errorResp{Error: "invalid credentials"})
	default:
		writeJSON(c, http.StatusOK, loginResp{Token: tok})
	}
}
