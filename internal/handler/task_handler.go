package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"taskhub/internal/middleware"
	"taskhub/internal/model"
	"taskhub/internal/service"
	"taskhub/pkg/apierror"
)

type TaskHandler struct {
	service *service.TaskService
}

func NewTaskHandler(service *service.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	task, err := h.service.Create(r.Context(), payload, claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, task, nil)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	filter, err := parseTaskFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tasks, meta, err := h.service.List(r.Context(), filter, claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tasks, meta)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	task, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, task, nil)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	task, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), payload, claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, task, nil)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), claims); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func parseTaskFilter(r *http.Request) (model.TaskFilter, error) {
	q := r.URL.Query()

	filter := model.TaskFilter{
		ProjectID:    strings.TrimSpace(q.Get("project_id")),
		Status:       strings.TrimSpace(q.Get("status")),
		Priority:     strings.TrimSpace(q.Get("priority")),
		Search:       strings.TrimSpace(q.Get("search")),
		AssignedTo:   strings.TrimSpace(q.Get("assigned_to")),
		ParentTaskID: strings.TrimSpace(q.Get("parent_task_id")),
		SortBy:       strings.TrimSpace(q.Get("sort_by")),
		SortOrder:    strings.TrimSpace(q.Get("sort_order")),
	}

	if raw := q.Get("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			return model.TaskFilter{}, apierror.BadRequest("invalid archived flag", raw)
		}
		filter.Archived = &archived
	}

	if raw := q.Get("due_after"); raw != "" {
		t, err := parseQueryDate(raw)
		if err != nil {
			return model.TaskFilter{}, apierror.BadRequest("invalid due_after date", raw)
		}
		filter.DueAfter = &t
	}
	if raw := q.Get("due_before"); raw != "" {
		t, err := parseQueryDate(raw)
		if err != nil {
			return model.TaskFilter{}, apierror.BadRequest("invalid due_before date", raw)
		}
		filter.DueBefore = &t
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return model.TaskFilter{}, apierror.BadRequest("invalid page", raw)
		}
		filter.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return model.TaskFilter{}, apierror.BadRequest("invalid limit", raw)
		}
		filter.Limit = limit
	}

	return filter, nil
}

func parseQueryDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
