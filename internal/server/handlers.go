package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/internal/remote"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remote.MessageEnvelope{Error: msg})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, remote.HealthEnvelope{
		Status: "ok",
		Time:   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := notification.Filter{Type: notification.Type(q.Get("type"))}
	if raw := q.Get("isRead"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "isRead must be a boolean")
			return
		}
		filter.IsRead = &b
	}

	page, ok := positiveParam(q.Get("page"), 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, ok := positiveParam(q.Get("limit"), defaultPageLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxPageLimit)

	all := s.cache.List(filter)
	total := len(all)

	// Clamped so (page-1)*limit cannot overflow.
	start := min((min(page, total/limit+1)-1)*limit, total)
	end := min(start+limit, total)

	writeJSON(w, http.StatusOK, remote.ListResponse{
		Notifications: all[start:end],
		UnreadCount:   s.cache.UnreadCount(),
		Pagination: remote.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.cache.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in notification.Record
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := notification.Draft{
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		IsRead:    in.IsRead,
		ActionURL: in.ActionURL,
		Metadata:  in.Metadata,
	}
	if err := draft.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := s.cache.Add(draft)
	rec.Synced = true
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) unreadCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, remote.UnreadCountEnvelope{UnreadCount: remote.IntPtr(s.cache.UnreadCount())})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.cache.Get(id); !ok {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	s.cache.MarkRead(id)
	writeJSON(w, http.StatusOK, remote.MessageEnvelope{Message: "notification marked as read"})
}

func (s *Server) markAllRead(w http.ResponseWriter, _ *http.Request) {
	n := s.cache.MarkAllRead()
	writeJSON(w, http.StatusOK, remote.MarkAllReadEnvelope{
		Message:     "all notifications marked as read",
		MarkedCount: remote.IntPtr(n),
	})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if !s.cache.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, remote.MessageEnvelope{Message: "notification deleted"})
}

func (s *Server) deleteAll(w http.ResponseWriter, _ *http.Request) {
	n := s.cache.DeleteAll()
	writeJSON(w, http.StatusOK, remote.DeleteAllEnvelope{
		Message:      "all notifications deleted",
		DeletedCount: remote.IntPtr(n),
	})
}

func (s *Server) preferences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Preferences())
}

func (s *Server) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch notification.PreferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs := s.cache.UpdatePreferences(patch)
	writeJSON(w, http.StatusOK, remote.PreferencesEnvelope{
		Message:     "preferences updated",
		Preferences: &prefs,
	})
}

func positiveParam(raw string, fallback int) (int, bool) {
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
