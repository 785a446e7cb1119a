package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/touchline/internal/domain/types"
)

// PeopleDependencies defines the interface for people lookups.
type PeopleDependencies interface {
	SearchPeople(ctx context.Context, query string, limit int) ([]types.Person, error)
	Person(ctx context.Context, id int64) (types.PersonDetail, error)
}

type peopleResponse struct {
	People []types.Person `json:"people"`
	Count  int            `json:"count"`
}

// PeopleHandler handles people requests.
type PeopleHandler struct {
	deps PeopleDependencies
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(deps PeopleDependencies) *PeopleHandler {
	return &PeopleHandler{deps: deps}
}

// HandleSearch handles GET /people/search?q=&limit= requests. Queries shorter
// than two characters return an empty list.
func (h *PeopleHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.people_search"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	people, err := h.deps.SearchPeople(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, peopleResponse{People: people, Count: len(people)})
}

// HandleGetPerson handles GET /people/{id} requests.
func (h *PeopleHandler) HandleGetPerson(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_person"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /people/
	path := strings.TrimPrefix(r.URL.Path, "/people/")
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	detail, err := h.deps.Person(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
