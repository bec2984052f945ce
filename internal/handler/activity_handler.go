package handler

import (
	"net/http"
	"strings"

	"taskhub/internal/model"
	"taskhub/internal/service"
	"taskhub/pkg/apierror"
)

type ActivityHandler struct {
	service *service.ActivityService
}

func NewActivityHandler(service *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := model.ActivityQuery{
		Action:   strings.TrimSpace(q.Get("action")),
		ActorID:  strings.TrimSpace(q.Get("actor_id")),
		Resource: strings.TrimSpace(q.Get("resource")),
		Page:     parseIntOrDefault(q.Get("page"), 1),
		Limit:    parseIntOrDefault(q.Get("limit"), 50),
	}

	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		t, err := parseQueryDate(raw)
		if err != nil {
			writeError(w, apierror.BadRequest("invalid since date", raw))
			return
		}
		query.Since = &t
	}
	if raw := strings.TrimSpace(q.Get("until")); raw != "" {
		t, err := parseQueryDate(raw)
		if err != nil {
			writeError(w, apierror.BadRequest("invalid until date", raw))
			return
		}
		query.Until = &t
	}

	entries, meta, err := h.service.Query(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, &meta)
}
