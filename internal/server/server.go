package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"recordkeep/internal/domain"
	"recordkeep/internal/logging"
	"recordkeep/internal/metrics"
	"recordkeep/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Records  repo.Indexed[domain.Record]
	BasePath string
	Auth     AuthConfig
	Logger   *zap.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"record 7: not found"`
	Details map[string]any `json:"details,omitempty"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the record store.
func New(cfg Config) (http.Handler, error) {
	if cfg.Records == nil {
		return nil, errors.New("server: records repository required")
	}
	logger := logging.OrNop(cfg.Logger)
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			msgs := make([]string, 0, len(errs))
			for _, e := range errs {
				msgs = append(msgs, e.Error())
			}
			details = map[string]any{"errors": msgs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(logger))
	router.Use(newAuthMiddleware(basePath, cfg.Auth, logger))
	router.Handle("/metrics", promhttp.Handler())

	hcfg := huma.DefaultConfig("Recordkeep API", "0.1.0")
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerRecords(group, cfg.Records)
	registerStatuses(group)
	if err := registerOpenAPI(router, api, basePath, cfg.Auth); err != nil {
		return nil, err
	}

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	var se *repo.SaveError
	if errors.As(err, &se) {
		return newAPIError(http.StatusServiceUnavailable, "save_failed", err.Error(), map[string]any{"backend": se.Backend})
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newAPIError(http.StatusServiceUnavailable, "canceled", err.Error(), nil)
	}
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "invalid") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// registerOpenAPI renders the document once; call it after every operation
// is registered.
func registerOpenAPI(r chi.Router, api huma.API, basePath string, auth AuthConfig) error {
	oas := api.OpenAPI()
	if auth.enabled() {
		applyAuthSecurity(oas, basePath)
	}
	doc, err := json.Marshal(oas)
	if err != nil {
		return fmt.Errorf("render openapi: %w", err)
	}
	r.Get(path.Join(basePath, "openapi.json"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	})
	return nil
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Get, item.Put, item.Post, item.Delete, item.Patch} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerRecords(api huma.API, records repo.Indexed[domain.Record]) {
	type recordPath struct {
		ID uint64 `path:"id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-record",
		Method:        http.MethodPost,
		Path:          "/records",
		Summary:       "Save a record under a fresh identity",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body CreateRecordRequest `json:"body"`
	}) (*struct {
		Body RecordResponse `json:"body"`
	}, error) {
		for k := range input.Body.Attributes {
			if k == "" {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "attribute keys must not be empty", nil)
			}
		}
		id, err := records.Save(ctx, input.Body.record())
		if err != nil {
			return nil, handleError(err)
		}
		saved, err := repo.Get(ctx, records, id)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RecordResponse `json:"body"`
		}{Body: NewRecordResponse(id, saved)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-records",
		Method:      http.MethodGet,
		Path:        "/records",
		Summary:     "List records ordered by identity",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []RecordResponse `json:"body"`
	}, error) {
		entries, err := records.Entries(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []RecordResponse `json:"body"`
		}{Body: NewRecordResponses(entries)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "count-records",
		Method:      http.MethodGet,
		Path:        "/records/count",
		Summary:     "Count records",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CountResponse `json:"body"`
	}, error) {
		n, err := repo.Count(ctx, records)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CountResponse `json:"body"`
		}{Body: CountResponse{Count: n}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/records/{id}",
		Summary:     "Get a record by identity",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *recordPath) (*struct {
		Body RecordResponse `json:"body"`
	}, error) {
		r, err := repo.Get(ctx, records, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RecordResponse `json:"body"`
		}{Body: NewRecordResponse(input.ID, r)}, nil
	})
}

func registerStatuses(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "classify-status",
		Method:      http.MethodPost,
		Path:        "/statuses/classify",
		Summary:     "Classify a work status",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body domain.StatusEnvelope `json:"body"`
	}) (*struct {
		Body ClassifyResponse `json:"body"`
	}, error) {
		st, err := input.Body.Status()
		if err != nil {
			return nil, handleError(err)
		}
		category := domain.Classify(st)
		metrics.StatusesClassified.WithLabelValues(string(category)).Inc()
		return &struct {
			Body ClassifyResponse `json:"body"`
		}{Body: ClassifyResponse{
			State:    domain.Envelope(st).State,
			Category: string(category),
			Display:  st.String(),
		}}, nil
	})
}
