package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/ytanalytics/internal/session"
)

// CookieName is the cookie holding the session id.
const CookieName = "ytanalytics_session"

type sessionHandler func(w http.ResponseWriter, r *http.Request, st *session.State)

// withSession loads the caller's session, creating one if needed, runs h and
// saves the state afterwards.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.loadSession(r)
		if err != nil {
			log.Error().Err(err).Msg("loading session")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if st == nil {
			st = s.newSession(r)
		}
		s.setCookie(w, st.ID)

		h(w, r, st)

		if err := s.store.Save(r.Context(), st); err != nil {
			log.Error().Err(err).Msg("saving session")
		}
	}
}

func (s *Server) loadSession(r *http.Request) (*session.State, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return nil, nil
	}
	st, err := s.store.Load(r.Context(), c.Value)
	if err != nil || st == nil {
		return nil, err
	}
	if s.expired(st) {
		if err := s.store.Delete(r.Context(), st.ID); err != nil {
			log.Warn().Err(err).Msg("deleting expired session")
		}
		return nil, nil
	}
	return st, nil
}

// newSession starts a fresh session and drops idle ones.
func (s *Server) newSession(r *http.Request) *session.State {
	if ttl := s.cfg.Server.SessionTTL; ttl > 0 {
		n, err := s.store.PurgeIdle(r.Context(), s.now().Add(-ttl))
		if err != nil {
			log.Warn().Err(err).Msg("purging idle sessions")
		} else if n > 0 {
			log.Debug().Int64("sessions", n).Msg("purged idle sessions")
		}
	}
	return session.New(uuid.NewString())
}

func (s *Server) expired(st *session.State) bool {
	ttl := s.cfg.Server.SessionTTL
	return ttl > 0 && s.now().Sub(st.UpdatedAt) > ttl
}

func (s *Server) setCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl := s.cfg.Server.SessionTTL; ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}
