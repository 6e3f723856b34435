package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/etitcombe/logifymw"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

func (s *server) registerRoutes() {
	mux := http.NewServeMux()
	mux.Handle("/", s.handleIndex())
	mux.Handle("/entries/", s.handleEntry())
	mux.Handle("/login", s.handleLogin())
	mux.Handle("/logout", s.handleLogout())
	mux.Handle("/status", s.handleStatus())
	mux.Handle("/static/", http.StripPrefix("/static/", staticFiles()))

	protect := csrf.Protect(s.csrfKey,
		csrf.Secure(s.secureCSRF),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(s.csrfFailure()),
	)

	httpLog := zap.NewStdLog(s.logger.Named("http"))
	s.router = s.recoverPanicMw(requestIDMw(logifymw.LogIt2(httpLog, headersMw(s.plaintextMw(protect(s.loadSession(mux)))))))
}

// plaintextMw tells the CSRF check that the server is reached over plain
// HTTP, so the Origin is compared with an http:// URL and a missing Referer
// is accepted. Secure deployments skip it and get the strict HTTPS checks.
func (s *server) plaintextMw(next http.Handler) http.Handler {
	if s.secureCSRF {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// loadSession decodes the session cookie once per request and stores the
// result in the request context.
func (s *server) loadSession(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.Get(r)
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func headersMw(next http.Handler) http.Handler {
	var headers = map[string]string{
		"Referrer-Policy":        "same-origin",
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "SAMEORIGIN",
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}

		next.ServeHTTP(w, r)
	})
}

func requestIDMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) recoverPanicMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				s.serverError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requireAdmin rejects the request with 401 unless the session carries the
// admin flag. Every handler that writes to the entry store sits behind it.
func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(r) {
			s.renderError(w, r, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) csrfFailure() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info("csrf check failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(csrf.FailureReason(r)),
		)
		s.clientError(w, http.StatusForbidden, "")
	})
}
