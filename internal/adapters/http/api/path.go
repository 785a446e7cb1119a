package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/touchline/internal/domain/search"
	"github.com/okian/touchline/internal/domain/types"
)

var validate = newValidator() //nolint:gochecknoglobals // validator caches struct metadata

// newValidator reports fields by their JSON names and adds the personid tag.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("personid", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() >= 1
	})
	return v
}

// invalid turns validation failures into one readable message.
func invalid(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		switch fe.Tag() {
		case "personid":
			msgs = append(msgs, fe.Field()+" must be a positive id")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// PathDependencies defines the interface for path search operations.
type PathDependencies interface {
	FindPath(ctx context.Context, req search.Request) types.Result
	Batch(ctx context.Context, reqs []search.Request) ([]types.Result, error)
}

// pathRequest mirrors the OpenAPI schema for a path search.
type pathRequest struct {
	SourcePersonID int64 `json:"sourcePersonId" validate:"personid"`
	TargetPersonID int64 `json:"targetPersonId" validate:"personid"`
	MaxDepth       int   `json:"maxDepth" validate:"min=0"`
}

func (p pathRequest) search() search.Request {
	return search.Request{SourceID: p.SourcePersonID, TargetID: p.TargetPersonID, MaxDepth: p.MaxDepth}
}

// batchRequest mirrors the OpenAPI schema for POST /paths/batch.
type batchRequest struct {
	Pairs []pathRequest `json:"pairs" validate:"required,min=1,dive"`
}

type batchResponse struct {
	Results []types.Result `json:"results"`
}

// PathHandler handles path search requests.
type PathHandler struct {
	deps    PathDependencies
	maxBody int64
}

// NewPathHandler creates a new path handler.
func NewPathHandler(deps PathDependencies, maxBody int64) *PathHandler {
	return &PathHandler{deps: deps, maxBody: maxBody}
}

// HandlePath handles GET /path?source=&target=&maxDepth= and POST /path.
func (h *PathHandler) HandlePath(w http.ResponseWriter, r *http.Request) {
	const op = "api.path"

	var (
		req pathRequest
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = pathFromQuery(r)
	case http.MethodPost:
		err = h.decode(w, r, &req)
	default:
		http.NotFound(w, r)
		return
	}
	if err == nil {
		err = invalid(validate.Struct(req))
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, types.Failed(types.ErrorInvalidRequest, WrapKind(op, ErrBadRequest, err).Error(), 0))
		return
	}

	res := h.deps.FindPath(r.Context(), req.search())
	writeJSON(w, statusFor(res), res)
}

// HandleBatch handles POST /paths/batch requests.
func (h *PathHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.paths_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req batchRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, invalid(err)))
		return
	}

	reqs := make([]search.Request, len(req.Pairs))
	for i, p := range req.Pairs {
		reqs[i] = p.search()
	}
	results, err := h.deps.Batch(r.Context(), reqs)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

func (h *PathHandler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func pathFromQuery(r *http.Request) (pathRequest, error) {
	q := r.URL.Query()
	var (
		req pathRequest
		err error
	)
	if req.SourcePersonID, err = strconv.ParseInt(q.Get("source"), 10, 64); err != nil {
		return pathRequest{}, errors.New("source must be a person id")
	}
	if req.TargetPersonID, err = strconv.ParseInt(q.Get("target"), 10, 64); err != nil {
		return pathRequest{}, errors.New("target must be a person id")
	}
	if d := q.Get("maxDepth"); d != "" {
		if req.MaxDepth, err = strconv.Atoi(d); err != nil {
			return pathRequest{}, errors.New("maxDepth must be an integer")
		}
	}
	return req, nil
}
