// Package apiv1 exposes the operator REST surface: inspecting and driving
// broadcast posts and one-off notifications without going through the bot.
package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/repository"
	"telegram-support-bot/internal/infra/metrics"
	"telegram-support-bot/internal/usecase"
)

type Server struct {
	casts   usecase.BroadcastUseCase
	notices usecase.NoticeUseCase
	posts   repository.BroadcastRepository
	log     *zerolog.Logger
}

func NewServer(
	casts usecase.BroadcastUseCase,
	notices usecase.NoticeUseCase,
	posts repository.BroadcastRepository,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "APIV1").Logger()
	return &Server{casts: casts, notices: notices, posts: posts, log: &l}
}

func RegisterAPIV1(r chi.Router, s *Server) {
	r.Get("/posts", s.listPosts)
	r.Post("/posts", s.createPost)
	r.Post("/posts/{id}/run", s.runPost)
	r.Post("/posts/{id}/cancel", s.cancelPost)
	r.Post("/sweep", s.sweep)
	r.Post("/notices", s.createNotice)
	r.Post("/notices/{token}/run", s.runNotice)
	r.Post("/notices/{token}/cancel", s.cancelNotice)
}

type Post struct {
	ID          string     `json:"id"`
	Category    string     `json:"category"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"created_at"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

func toPost(p *model.PendingBroadcast) Post {
	out := Post{
		ID:        p.ID,
		Category:  p.Category.String(),
		Text:      p.Text,
		CreatedAt: p.CreatedAt,
	}
	if !p.ScheduledAt.IsZero() {
		at := p.ScheduledAt
		out.ScheduledAt = &at
	}
	return out
}

type createPostRequest struct {
	Category    string     `json:"category"`
	Text        string     `json:"text"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

type runReportResponse struct {
	PostID             string `json:"post_id"`
	Delivered          int    `json:"delivered"`
	SkippedDuplicate   int    `json:"skipped_duplicate"`
	SkippedUnreachable int    `json:"skipped_unreachable"`
	Aborted            bool   `json:"aborted"`
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	pending, err := s.posts.ListPending(r.Context())
	if err != nil {
		s.writeErr(w, r, "posts_list", err)
		return
	}
	items := make([]Post, 0, len(pending))
	for _, p := range pending {
		items = append(items, toPost(p))
	}
	metrics.IncAdminCommand("posts_list", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, r, "post_create", domain.ErrInvalidArgument)
		return
	}
	category, ok := model.ParseCategory(req.Category)
	if !ok {
		s.writeErr(w, r, "post_create", domain.ErrInvalidArgument)
		return
	}
	var at time.Time
	if req.ScheduledAt != nil {
		at = *req.ScheduledAt
	}
	p, err := s.casts.CreatePost(r.Context(), category, req.Text, at)
	if err != nil {
		s.writeErr(w, r, "post_create", err)
		return
	}
	metrics.IncAdminCommand("post_create", "ok")
	writeJSON(w, http.StatusCreated, toPost(p))
}

func (s *Server) runPost(w http.ResponseWriter, r *http.Request) {
	report, err := s.casts.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, "post_run", err)
		return
	}
	metrics.IncAdminCommand("post_run", "ok")
	writeJSON(w, http.StatusOK, runReportResponse{
		PostID:             report.PostID,
		Delivered:          report.Count(model.Delivered),
		SkippedDuplicate:   report.Count(model.SkippedDuplicate),
		SkippedUnreachable: report.Count(model.SkippedUnreachable),
		Aborted:            report.Aborted,
	})
}

func (s *Server) cancelPost(w http.ResponseWriter, r *http.Request) {
	if err := s.casts.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, "post_cancel", err)
		return
	}
	metrics.IncAdminCommand("post_cancel", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	n, err := s.casts.RunPending(r.Context())
	if err != nil {
		s.writeErr(w, r, "sweep", err)
		return
	}
	metrics.IncAdminCommand("sweep", "ok")
	writeJSON(w, http.StatusOK, map[string]int{"completed": n})
}

type createNoticeRequest struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

func (s *Server) createNotice(w http.ResponseWriter, r *http.Request) {
	var req createNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, r, "notice_create", domain.ErrInvalidArgument)
		return
	}
	category, ok := model.ParseCategory(req.Category)
	if !ok {
		s.writeErr(w, r, "notice_create", domain.ErrInvalidArgument)
		return
	}
	n, err := s.notices.Create(r.Context(), category, req.Text)
	if err != nil {
		s.writeErr(w, r, "notice_create", err)
		return
	}
	metrics.IncAdminCommand("notice_create", "ok")
	writeJSON(w, http.StatusCreated, map[string]string{
		"token":    n.Token,
		"category": n.Category.String(),
	})
}

func (s *Server) runNotice(w http.ResponseWriter, r *http.Request) {
	sent, err := s.notices.Run(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeErr(w, r, "notice_run", err)
		return
	}
	metrics.IncAdminCommand("notice_run", "ok")
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

func (s *Server) cancelNotice(w http.ResponseWriter, r *http.Request) {
	if err := s.notices.Cancel(r.Context(), chi.URLParam(r, "token")); err != nil {
		s.writeErr(w, r, "notice_cancel", err)
		return
	}
	metrics.IncAdminCommand("notice_cancel", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	metrics.IncAdminCommand(op, "error")
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("op", op).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
