package server

import "net/http"

const (
	sessionName     = "leapconsole"
	sessionAuthKey  = "authenticated"
	msgUnauthorized = "Not authenticated"
)

func (s *Server) isAuthenticated(r *http.Request) bool {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return false
	}
	ok, _ := session.Values[sessionAuthKey].(bool)
	return ok
}

// markAuthenticated records a verified code on the caller's session.
func (s *Server) markAuthenticated(w http.ResponseWriter, r *http.Request) error {
	// A stale or tampered cookie yields a fresh session alongside the error.
	session, _ := s.sessionStore.Get(r, sessionName)
	session.Values[sessionAuthKey] = true
	return session.Save(r, w)
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.requireSession && !s.isAuthenticated(r) {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
