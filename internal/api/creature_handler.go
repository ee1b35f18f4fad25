package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/athorsen/bestiary-api/internal/api/shared"
	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/store"
)

// maxPageSize caps one listing page.
const maxPageSize = 1000

// CreatureListResponse is one page of creatures plus the total match count.
type CreatureListResponse struct {
	Creatures []*domain.Creature `json:"creatures"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// CreatureHandler handles the catalog read/write HTTP endpoints.
type CreatureHandler struct {
	creatures store.CreatureStore
}

// NewCreatureHandler creates a new CreatureHandler.
func NewCreatureHandler(creatures store.CreatureStore) *CreatureHandler {
	return &CreatureHandler{creatures: creatures}
}

// ListCreatures handles GET /api/creatures requests: substring filters on
// name/tag/trait, minimum-stat thresholds, whitelisted sorting and
// pagination.
func (h *CreatureHandler) ListCreatures(w http.ResponseWriter, r *http.Request) {
	filter, errMsg := buildListFilter(r)
	if errMsg != "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, errMsg)
		return
	}

	creatures, total, err := h.creatures.List(r.Context(), filter)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if creatures == nil {
		creatures = []*domain.Creature{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CreatureListResponse{
		Creatures: creatures,
		Total:     total,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	})
}

// GetCreature handles GET /api/creatures/{id} requests.
func (h *CreatureHandler) GetCreature(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid creature ID")
		return
	}

	creature, err := h.creatures.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, creature)
}

// GetCreatureByName handles GET /api/creatures/name/{name} requests. The
// match is case-insensitive.
func (h *CreatureHandler) GetCreatureByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Creature name is required")
		return
	}

	creature, err := h.creatures.GetByNameFold(r.Context(), name)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, creature)
}

// CreateCreature handles POST /api/creatures requests.
func (h *CreatureHandler) CreateCreature(w http.ResponseWriter, r *http.Request) {
	var creature domain.Creature
	if err := shared.DecodeJSON(r, &creature); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	creature.ID = 0
	creature.RecomputeTotal()
	if err := creature.Validate(); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.creatures.Create(r.Context(), &creature); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, &creature)
}

// UpdateCreature handles PUT /api/creatures/{id} requests. The body fully
// replaces the stored record; associations are re-linked from the body.
func (h *CreatureHandler) UpdateCreature(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid creature ID")
		return
	}

	var creature domain.Creature
	if err := shared.DecodeJSON(r, &creature); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	creature.ID = id
	creature.RecomputeTotal()
	if err := creature.Validate(); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.creatures.Update(r.Context(), &creature); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, &creature)
}

// DeleteCreature handles DELETE /api/creatures/{id} requests.
func (h *CreatureHandler) DeleteCreature(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid creature ID")
		return
	}

	if err := h.creatures.Delete(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSummary handles GET /api/creatures/summary requests.
func (h *CreatureHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.creatures.Summary(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// buildListFilter parses the listing query parameters. The second return
// value is a non-empty client error message on invalid input.
func buildListFilter(r *http.Request) (store.CreatureFilter, string) {
	query := r.URL.Query()

	filter := store.CreatureFilter{
		Name:     query.Get("name"),
		Tag:      query.Get("tag"),
		Trait:    query.Get("trait"),
		SortBy:   query.Get("sort_by"),
		SortDesc: query.Get("order") == "desc",
	}

	var ok bool
	if filter.Limit, ok = queryInt(r, "limit", 20, 1, maxPageSize); !ok {
		return filter, "Invalid limit parameter"
	}
	if filter.Offset, ok = queryInt(r, "offset", 0, 0, math.MaxInt32); !ok {
		return filter, "Invalid offset parameter"
	}

	thresholds := []struct {
		param string
		dest  **int
		max   int
	}{
		{"min_hp", &filter.MinHP, domain.MaxStatValue},
		{"min_attack", &filter.MinAttack, domain.MaxStatValue},
		{"min_defense", &filter.MinDefense, domain.MaxStatValue},
		{"min_special_attack", &filter.MinSpecialAttack, domain.MaxStatValue},
		{"min_special_defense", &filter.MinSpecialDefense, domain.MaxStatValue},
		{"min_speed", &filter.MinSpeed, domain.MaxStatValue},
		{"min_total", &filter.MinTotalStats, 2000},
	}
	for _, threshold := range thresholds {
		raw := query.Get(threshold.param)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 || value > threshold.max {
			return filter, "Invalid " + threshold.param + " parameter"
		}
		*threshold.dest = &value
	}

	return filter, ""
}
