package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/aTrapDeer/portfolio-api/internal/models"
	"github.com/aTrapDeer/portfolio-api/internal/payload"
	"github.com/aTrapDeer/portfolio-api/internal/revalidate"
	"github.com/aTrapDeer/portfolio-api/internal/store"
)

// Resource serves list, retrieve, create, update, partial update and delete
// for one model. PT is *T, which gives access to the shared columns.
type Resource[T any, PT interface {
	*T
	models.Record
}] struct {
	entity   string // singular display name, e.g. "Project"
	key      string // revalidation resource, e.g. "projects"
	repo     *store.Repository[T]
	filter   func(*http.Request) []store.Scope
	notifier *revalidate.Notifier
	log      *zap.Logger
}

// NewResource builds the handlers for one model. filter, when non-nil,
// narrows List by request parameters.
func NewResource[T any, PT interface {
	*T
	models.Record
}](entity, key string, repo *store.Repository[T], filter func(*http.Request) []store.Scope, notifier *revalidate.Notifier, log *zap.Logger) *Resource[T, PT] {
	return &Resource[T, PT]{
		entity:   entity,
		key:      key,
		repo:     repo,
		filter:   filter,
		notifier: notifier,
		log:      log,
	}
}

func (h *Resource[T, PT]) List(w http.ResponseWriter, r *http.Request) {
	var scopes []store.Scope
	if h.filter != nil {
		scopes = h.filter(r)
	}
	rows, err := h.repo.List(r.Context(), scopes...)
	if err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Resource[T, PT]) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	row, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *Resource[T, PT]) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}

	row := new(T)
	if err := payload.Decode(body, row); err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	if err := payload.Validate(row); err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	if err := h.repo.Create(r.Context(), row); err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}

	h.notifier.Trigger(h.key)
	writeJSON(w, http.StatusCreated, row)
}

// Update replaces every writable field; fields missing from the body go
// back to their zero values.
func (h *Resource[T, PT]) Update(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, false)
}

// Patch changes only the fields present in the body.
func (h *Resource[T, PT]) Patch(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, true)
}

func (h *Resource[T, PT]) write(w http.ResponseWriter, r *http.Request, merge bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	stored, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}

	row := stored
	if !merge {
		row = new(T)
		meta, old := PT(row).Meta(), PT(stored).Meta()
		meta.ID, meta.CreatedAt, meta.UpdatedAt = old.ID, old.CreatedAt, old.UpdatedAt
	}
	if err := payload.Decode(body, row); err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	if err := payload.Validate(row); err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	if err := h.repo.Save(r.Context(), row); err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}

	h.notifier.Trigger(h.key)
	writeJSON(w, http.StatusOK, row)
}

func (h *Resource[T, PT]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.log, h.entity, err)
		return
	}

	h.notifier.Trigger(h.key)
	w.WriteHeader(http.StatusNoContent)
}

// categoryFilter narrows projects to ?category=, matched exactly.
func categoryFilter(r *http.Request) []store.Scope {
	category := r.URL.Query().Get("category")
	if category == "" {
		return nil
	}
	return []store.Scope{store.FieldEquals("category", category)}
}
