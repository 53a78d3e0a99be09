// Package handler exposes the auth flows over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/account"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/auth"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/logger"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/middleware"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/session"
)

const (
	DefaultMaxBodyBytes = 1 << 20

	redirectHome = "/home"
)

// Flows is the auth core the handler drives.
type Flows interface {
	Continue(ctx context.Context, req auth.ContinueRequest) (auth.Decision, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.Decision, error)
	Signup(ctx context.Context, req auth.SignupRequest) (auth.Decision, error)
	Logout(ctx context.Context, token string)
	Account(ctx context.Context, token string) (*account.Account, error)
}

type Handler struct {
	flows        Flows
	cookies      session.CookieOptions
	maxBodyBytes int64
	log          *logger.Logger
}

func NewHandler(
	flows Flows,
	cookies session.CookieOptions,
	maxBodyBytes int64,
	log *logger.Logger,
) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		flows:        flows,
		cookies:      cookies,
		maxBodyBytes: maxBodyBytes,
		log:          log,
	}
}

// RegisterRoutes mounts the endpoints on r. The app mounts them twice: at
// the root and under /api.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/autoauth", h.AutoAuth)
	r.GET("/autoauth", h.AutoAuth)
	r.POST("/logout", h.Logout)
}

// RegisterProtected mounts the routes that need a resolved session.
func (h *Handler) RegisterProtected(r gin.IRoutes) {
	requireSession := middleware.GinRequireAuth(middleware.NewAuthMiddleware(h.flows, func(err error) bool {
		return errors.Is(err, auth.ErrInvalidSession)
	}))
	r.GET("/me", requireSession, h.Me)
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if res, ok := h.bind(c, &req); !ok {
		render(c, res)
		return
	}

	fp, err := optionalFingerprint(req.Fingerprint)
	if err != nil {
		render(c, errorResult(err))
		return
	}

	d, err := h.flows.Signup(c.Request.Context(), auth.SignupRequest{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		Fingerprint: fp,
	})
	if err != nil {
		render(c, errorResult(err))
		return
	}

	render(c, h.authenticated(d.Token))
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if res, ok := h.bind(c, &req); !ok {
		render(c, res)
		return
	}

	fp, err := optionalFingerprint(req.Fingerprint)
	if err != nil {
		render(c, errorResult(err))
		return
	}

	d, err := h.flows.Login(c.Request.Context(), auth.LoginRequest{
		Token:       session.TokenFromRequest(c.Request),
		Email:       req.Email,
		Password:    req.Password,
		Fingerprint: fp,
	})
	if err != nil {
		render(c, errorResult(err))
		return
	}

	// a cookie that resolved may have gone to the classifier
	if d.State != auth.StateAuthenticated {
		render(c, continuityResult(d))
		return
	}
	render(c, h.authenticated(d.Token))
}

func (h *Handler) AutoAuth(c *gin.Context) {
	var req autoAuthRequest
	if res, ok := h.bind(c, &req); !ok {
		render(c, res)
		return
	}

	fp, err := optionalFingerprint(req.Fingerprint)
	if err != nil {
		render(c, errorResult(err))
		return
	}
	if fp.IsZero() {
		render(c, errorResult(auth.ErrMissingFields))
		return
	}
	baseline, err := optionalFingerprint(req.AccountFingerprint)
	if err != nil {
		render(c, errorResult(err))
		return
	}

	d, err := h.flows.Continue(c.Request.Context(), auth.ContinueRequest{
		Token:              session.TokenFromRequest(c.Request),
		Fingerprint:        fp,
		AccountFingerprint: baseline,
	})
	if err != nil {
		render(c, errorResult(err))
		return
	}

	render(c, continuityResult(d))
}

func (h *Handler) Logout(c *gin.Context) {
	h.flows.Logout(c.Request.Context(), session.TokenFromRequest(c.Request))

	render(c, Result{
		Status:  http.StatusOK,
		Cookies: []*http.Cookie{session.ClearedCookie(h.cookies)},
		Body:    gin.H{"message": "Logged out"},
	})
}

func (h *Handler) Me(c *gin.Context) {
	acct, ok := middleware.AccountFromContext(c.Request.Context())
	if !ok {
		render(c, errorResult(auth.ErrInvalidSession))
		return
	}

	render(c, jsonOK(gin.H{
		"id":           acct.ID,
		"email":        acct.Email,
		"username":     acct.Username,
		"fingerprints": acct.Fingerprints.RawValues(),
	}))
}

// bind buffers and decodes the request body into v.
func (h *Handler) bind(c *gin.Context, v any) (Result, bool) {
	body, err := readBody(c, h.maxBodyBytes)
	if err == nil {
		err = decode(body, v)
	}
	if err != nil {
		h.log.Info("rejected request body", map[string]any{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		return errorResult(err), false
	}
	return Result{}, true
}

func (h *Handler) authenticated(token string) Result {
	return Result{
		Status:  http.StatusOK,
		Cookies: []*http.Cookie{session.Cookie(token, h.cookies)},
		Body: gin.H{
			"message":    "User authenticated",
			"redirectTo": redirectHome,
		},
	}
}

// continuityResult renders a continuity decision. Classifier diagnostics are
// a 200 with success false so the client decides what to do next.
func continuityResult(d auth.Decision) Result {
	if d.Verdict == nil {
		return jsonOK(gin.H{
			"success":      d.State == auth.StateAuthenticated,
			"fingerprints": d.Fingerprints().RawValues(),
		})
	}

	body := gin.H{
		"success":  !d.Verdict.Failed(),
		"mlResult": d.Verdict.MLResult(),
	}
	if d.ForceLogout {
		body["forceLogout"] = true
	}
	return jsonOK(body)
}
