// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/examreg/examreg/internal/auth"
	"github.com/examreg/examreg/internal/mail"
	"github.com/examreg/examreg/internal/observability"
	"github.com/examreg/examreg/pkg/errutil"
)

// sessionCookie holds the raw web session token.
const sessionCookie = "examreg_session"

// Handlers implements the ExamReg HTML routes.
type Handlers struct {
	auth         *auth.Service
	resets       *auth.PasswordResetService
	mailer       mail.Mailer
	metrics      *observability.Metrics
	logger       *slog.Logger
	baseURL      string
	cookieSecure bool
	devResetLink bool // console mail mode: surface the reset link in a flash
}

// HandlersConfig carries the dependencies and settings for NewHandlers.
type HandlersConfig struct {
	Auth         *auth.Service
	Resets       *auth.PasswordResetService
	Mailer       mail.Mailer
	Metrics      *observability.Metrics
	Logger       *slog.Logger
	BaseURL      string
	CookieSecure bool
	DevResetLink bool
}

// NewHandlers creates the HTTP handlers for the web surface.
func NewHandlers(cfg HandlersConfig) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		auth:         cfg.Auth,
		resets:       cfg.Resets,
		mailer:       cfg.Mailer,
		metrics:      cfg.Metrics,
		logger:       logger,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		cookieSecure: cfg.CookieSecure,
		devResetLink: cfg.DevResetLink,
	}
}

// Routes builds the router for all web endpoints.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", h.home)
	r.Get("/healthz", h.healthz)
	r.Get("/signup", h.signupForm)
	r.Get("/login", h.loginForm)
	r.Get("/forgot", h.forgotForm)
	r.Get("/reset/{token}", h.resetForm)
	r.Get("/logout", h.logout)

	// Credential-bearing POSTs get per-IP throttling.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(20, time.Minute))
		r.Post("/signup", h.signupSubmit)
		r.Post("/login", h.loginSubmit)
		r.Post("/forgot", h.forgotSubmit)
		r.Post("/reset/{token}", h.resetSubmit)
	})

	return r
}

// currentStudent resolves the signed-in student from the session
// cookie. Returns nil when no valid session is present.
func (h *Handlers) currentStudent(r *http.Request) *auth.Student {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	_, student, err := h.auth.ValidateSession(r.Context(), c.Value)
	if err != nil {
		return nil
	}
	return student
}

func (h *Handlers) home(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Home", Flash: popFlash(w, r)}
	if student := h.currentStudent(r); student != nil {
		data.UserName = student.FullName
	}
	render(w, "home.html", data)
}

func (h *Handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable
	w.Write([]byte("ok\n"))
}

func (h *Handlers) signupForm(w http.ResponseWriter, r *http.Request) {
	render(w, "signup.html", pageData{Title: "Sign up", Flash: popFlash(w, r)})
}

func (h *Handlers) signupSubmit(w http.ResponseWriter, r *http.Request) {
	fullName := strings.TrimSpace(r.PostFormValue("full_name"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm")

	if fullName == "" || email == "" || password == "" || confirm == "" {
		setFlash(w, FlashError, "All fields are required.")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	_, err := h.auth.Register(r.Context(), email, fullName, password, confirm)
	if err != nil {
		h.countRegistration(err)
		switch {
		case errors.Is(err, auth.ErrInvalidEmail):
			setFlash(w, FlashError, "Use your CSN email like 8001234567@student.csn.edu.")
		case errors.Is(err, auth.ErrPasswordPolicy):
			setFlash(w, FlashError, "Password must be your 10-digit NSHE and match confirm.")
		case errors.Is(err, auth.ErrPasswordNotStudentNumber):
			setFlash(w, FlashError, "Password must equal the NSHE number in your email.")
		case errors.Is(err, auth.ErrDuplicateEmail):
			setFlash(w, FlashError, "That CSN email is already registered.")
		default:
			h.serverError(w, r, "registration failed", err)
			return
		}
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	h.countRegistration(nil)
	setFlash(w, FlashSuccess, "Account created! Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handlers) loginForm(w http.ResponseWriter, r *http.Request) {
	render(w, "login.html", pageData{Title: "Log in", Flash: popFlash(w, r)})
}

func (h *Handlers) loginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	if email == "" || password == "" {
		setFlash(w, FlashError, "Email and password are required.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	student, session, token, err := h.auth.Login(r.Context(), email, password, r.UserAgent(), remoteIP(r))
	if err != nil {
		h.countLogin(err)
		switch {
		case errors.Is(err, auth.ErrMalformedCredentials):
			setFlash(w, FlashError, "Use your CSN email and your 10-digit NSHE as the password.")
		case errors.Is(err, auth.ErrInvalidCredentials):
			setFlash(w, FlashError, "Invalid email or password.")
		default:
			h.serverError(w, r, "login failed", err)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.countLogin(nil)
	h.setSessionCookie(w, token, session.ExpiresAt)
	h.logger.Info("student logged in", "student_id", student.ID.String())
	setFlash(w, FlashSuccess, "Logged in!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if session, _, verr := h.auth.ValidateSession(r.Context(), c.Value); verr == nil {
			if lerr := h.auth.Logout(r.Context(), session.ID); lerr != nil {
				errutil.LogError(h.logger, "logout failed", lerr)
			}
		}
	}
	h.clearSessionCookie(w)
	setFlash(w, FlashInfo, "Logged out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) forgotForm(w http.ResponseWriter, r *http.Request) {
	render(w, "forgot.html", pageData{Title: "Forgot password", Flash: popFlash(w, r)})
}

func (h *Handlers) forgotSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	if email == "" {
		setFlash(w, FlashError, "Email is required.")
		http.Redirect(w, r, "/forgot", http.StatusSeeOther)
		return
	}

	student, token, err := h.resets.RequestReset(r.Context(), email)
	if err != nil {
		h.countResetRequest("error")
		h.serverError(w, r, "reset request failed", err)
		return
	}

	// The uniform message goes out regardless of whether the account
	// exists; dev mode appends the link to it rather than replacing it.
	msg := "If that email exists, we've sent reset instructions."

	if student != nil {
		link := h.baseURL + "/reset/" + token
		body := fmt.Sprintf(
			"Hi %s,\n\nWe received a request to reset your ExamReg password.\n\n"+
				"Open this link to choose a new password:\n\n  %s\n\n"+
				"The link expires in 1 hour and can only be used once. "+
				"If you didn't ask for this, you can ignore this email.\n",
			student.FullName, link,
		)
		if serr := h.mailer.Send(r.Context(), student.Email, "Reset your ExamReg password", body); serr != nil {
			// Delivery failures stay internal; the response below is
			// identical whether or not an email went out.
			errutil.LogError(h.logger, "reset email delivery failed", serr)
			h.countResetRequest("delivery_failed")
		} else {
			h.countResetRequest("sent")
		}
		if h.devResetLink {
			msg += " DEV reset link: " + link
		}
	} else {
		h.countResetRequest("unknown_email")
	}

	setFlash(w, FlashInfo, msg)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handlers) resetForm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	student, err := h.resets.ValidateToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) {
			setFlash(w, FlashError, "This reset link is invalid or expired.")
			http.Redirect(w, r, "/forgot", http.StatusSeeOther)
			return
		}
		h.serverError(w, r, "reset token lookup failed", err)
		return
	}

	render(w, "reset.html", pageData{
		Title: "Reset password",
		Flash: popFlash(w, r),
		Name:  student.FullName,
		Token: token,
	})
}

func (h *Handlers) resetSubmit(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm")

	err := h.resets.Redeem(r.Context(), token, password, confirm)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordMismatch):
			h.countRedemption("mismatch")
			setFlash(w, FlashError, "Passwords must match.")
			http.Redirect(w, r, "/reset/"+token, http.StatusSeeOther)
		case errors.Is(err, auth.ErrTokenInvalid):
			h.countRedemption("invalid")
			setFlash(w, FlashError, "This reset link is invalid or expired.")
			http.Redirect(w, r, "/forgot", http.StatusSeeOther)
		default:
			h.countRedemption("error")
			h.serverError(w, r, "reset redemption failed", err)
		}
		return
	}

	h.countRedemption("ok")
	setFlash(w, FlashSuccess, "Your password has been updated. Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) serverError(w http.ResponseWriter, _ *http.Request, msg string, err error) {
	errutil.LogError(h.logger, msg, err)
	http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
}

func (h *Handlers) countRegistration(err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.RegistrationsTotal.WithLabelValues(statusLabel(err)).Inc()
}

func (h *Handlers) countLogin(err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.LoginsTotal.WithLabelValues(statusLabel(err)).Inc()
}

func (h *Handlers) countResetRequest(status string) {
	if h.metrics == nil {
		return
	}
	h.metrics.ResetRequestsTotal.WithLabelValues(status).Inc()
}

func (h *Handlers) countRedemption(status string) {
	if h.metrics == nil {
		return
	}
	h.metrics.ResetRedemptionsTotal.WithLabelValues(status).Inc()
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return "rejected"
}

// remoteIP extracts the client address without the port. RealIP
// middleware has already folded in any forwarding headers.
func remoteIP(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		return strings.Trim(addr[:i], "[]")
	}
	return addr
}
