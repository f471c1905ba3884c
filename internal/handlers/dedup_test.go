package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/apierror"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeService struct {
	searchResult *models.SearchResult
	searchErr    error
	record       *models.AuditRecord
	recordErr    error
	history      []models.AuditRecord
	historyErr   error
	clusters     *models.ClusterResult
	clustersErr  error
}

func (f *fakeService) Search(_ context.Context, _ models.SearchCriteria) (*models.SearchResult, error) {
	return f.searchResult, f.searchErr
}

func (f *fakeService) RecordDecision(_ context.Context, _ models.DecisionRequest) (*models.AuditRecord, error) {
	return f.record, f.recordErr
}

func (f *fakeService) History(_ context.Context, _ uuid.UUID) ([]models.AuditRecord, error) {
	return f.history, f.historyErr
}

func (f *fakeService) Clusters(_ context.Context, _, _ int) (*models.ClusterResult, error) {
	return f.clusters, f.clustersErr
}

func newTestServer(svc DeduplicationService) *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())

	NewDedupHandler(svc).RegisterRoutes(e.Group(""))
	return e
}

func doJSON(e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(middleware.HeaderUserID, uuid.New().String())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("success envelope", func(t *testing.T) {
		svc := &fakeService{searchResult: &models.SearchResult{
			Candidates: []models.DuplicateCandidate{
				{Case: models.Case{ID: uuid.New()}, MatchedFields: []models.FieldName{models.FieldPANNumber}, MatchScore: 0.4},
			},
			SearchToken: "tok",
		}}
		e := newTestServer(svc)

		rec := doJSON(e, http.MethodPost, "/cases/deduplication/search", map[string]any{"panNumber": "ABCDE1234F"})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, true, body["success"])

		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "tok", data["searchToken"])
		assert.Len(t, data["candidates"], 1)
	})

	t.Run("invalid criteria maps to 400 with code", func(t *testing.T) {
		svc := &fakeService{searchErr: apierror.BadRequest(apierror.CodeInvalidSearchCriteria, "at least one search criterion is required")}
		e := newTestServer(svc)

		rec := doJSON(e, http.MethodPost, "/cases/deduplication/search", map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		errBody, ok := body["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, apierror.CodeInvalidSearchCriteria, errBody["code"])
	})

	t.Run("no client access maps to 403", func(t *testing.T) {
		svc := &fakeService{searchErr: apierror.Forbidden(apierror.CodeNoClientAccess, "no client access assigned")}
		e := newTestServer(svc)

		rec := doJSON(e, http.MethodPost, "/cases/deduplication/search", map[string]any{"panNumber": "ABCDE1234F"})
		require.Equal(t, http.StatusForbidden, rec.Code)

		body := decode(t, rec)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, apierror.CodeNoClientAccess, errBody["code"])
	})
}

func TestDecisionEndpoint(t *testing.T) {
	t.Run("created message envelope", func(t *testing.T) {
		record := &models.AuditRecord{ID: uuid.New(), CaseID: uuid.New(), UserDecision: models.DecisionCreateNew}
		e := newTestServer(&fakeService{record: record})

		rec := doJSON(e, http.MethodPost, "/cases/deduplication/decision", map[string]any{
			"decision": map[string]any{
				"caseId":    record.CaseID.String(),
				"decision":  "CREATE_NEW",
				"rationale": "no duplicates",
			},
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "deduplication decision recorded", body["message"])
		assert.NotContains(t, body, "data")
	})

	t.Run("invalid decision type maps to 400", func(t *testing.T) {
		e := newTestServer(&fakeService{recordErr: apierror.BadRequest(apierror.CodeInvalidDecisionType, "bad decision")})

		rec := doJSON(e, http.MethodPost, "/cases/deduplication/decision", map[string]any{
			"decision": map[string]any{"decision": "NOPE"},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decode(t, rec)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, apierror.CodeInvalidDecisionType, errBody["code"])
	})
}

func TestHistoryEndpoint(t *testing.T) {
	t.Run("data is the bare record list", func(t *testing.T) {
		caseID := uuid.New()
		e := newTestServer(&fakeService{history: []models.AuditRecord{{CaseID: caseID}}})

		rec := doJSON(e, http.MethodGet, "/cases/"+caseID.String()+"/deduplication/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		data, ok := body["data"].([]any)
		require.True(t, ok)
		require.Len(t, data, 1)
		first := data[0].(map[string]any)
		assert.Equal(t, caseID.String(), first["caseId"])
	})

	t.Run("empty history is an empty list, not null", func(t *testing.T) {
		e := newTestServer(&fakeService{})

		rec := doJSON(e, http.MethodGet, "/cases/"+uuid.New().String()+"/deduplication/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		data, ok := body["data"].([]any)
		require.True(t, ok)
		assert.Empty(t, data)
	})

	t.Run("bad uuid maps to 400", func(t *testing.T) {
		e := newTestServer(&fakeService{})

		rec := doJSON(e, http.MethodGet, "/cases/not-a-uuid/deduplication/history", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown case maps to 404", func(t *testing.T) {
		e := newTestServer(&fakeService{historyErr: apierror.NotFound(apierror.CodeCaseNotFound, "case not found")})

		rec := doJSON(e, http.MethodGet, "/cases/"+uuid.New().String()+"/deduplication/history", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)

		body := decode(t, rec)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, apierror.CodeCaseNotFound, errBody["code"])
	})
}

func TestClustersEndpoint(t *testing.T) {
	e := newTestServer(&fakeService{clusters: &models.ClusterResult{
		Clusters:   []models.DuplicateCluster{},
		Pagination: models.Pagination{Page: 1, Limit: 20},
	}})

	rec := doJSON(e, http.MethodGet, "/cases/deduplication/clusters?page=1&limit=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
}
