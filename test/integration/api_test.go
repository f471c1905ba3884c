package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/handlers"
	"github.com/Ramsey-B/clover/internal/repositories/cases"
	"github.com/Ramsey-B/clover/internal/repositories/clusters"
	"github.com/Ramsey-B/clover/pkg/accessscope"
	"github.com/Ramsey-B/clover/pkg/apierror"
	"github.com/Ramsey-B/clover/pkg/dedup"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/searchtoken"
)

// memStore backs the API with in-memory data so the full request path
// (middleware, normalization, scoring, token, audit) runs without Postgres.
type memStore struct {
	cases  map[uuid.UUID]*models.Case
	audits []models.AuditRecord
}

func newMemStore() *memStore {
	return &memStore{cases: make(map[uuid.UUID]*models.Case)}
}

func (m *memStore) addCase(c models.Case) models.Case {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.cases[c.ID] = &c
	return c
}

func (m *memStore) Search(_ context.Context, criteria models.SearchCriteria, params cases.SearchParams) ([]cases.SearchRow, error) {
	var rows []cases.SearchRow
	for _, c := range m.cases {
		if params.Restricted && !containsID(params.ClientIDs, c.ClientID) {
			continue
		}

		row := cases.SearchRow{Case: *c}
		if criteria.PANNumber != "" && c.PANNumber != nil && *c.PANNumber == criteria.PANNumber {
			row.PANMatched = true
		}
		if criteria.AadhaarNumber != "" && c.AadhaarNumber != nil && *c.AadhaarNumber == criteria.AadhaarNumber {
			row.AadhaarMatched = true
		}
		if criteria.CustomerPhone != "" && c.ApplicantPhone != nil && *c.ApplicantPhone == criteria.CustomerPhone {
			row.PhoneMatched = true
		}
		if criteria.BankAccountNumber != "" && c.BankAccountNumber != nil && *c.BankAccountNumber == criteria.BankAccountNumber {
			row.BankAccountMatched = true
		}

		if row.PANMatched || row.AadhaarMatched || row.PhoneMatched || row.BankAccountMatched {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Case, error) {
	if c, ok := m.cases[id]; ok {
		return c, nil
	}
	return nil, apierror.NotFound(apierror.CodeCaseNotFound, "case not found")
}

func (m *memStore) Insert(_ context.Context, record *models.AuditRecord) (*models.AuditRecord, error) {
	record.ID = uuid.New()
	record.PerformedAt = time.Now().UTC()
	m.audits = append(m.audits, *record)
	return record, nil
}

func (m *memStore) ListByCaseID(_ context.Context, caseID uuid.UUID) ([]models.AuditRecord, error) {
	var out []models.AuditRecord
	for i := len(m.audits) - 1; i >= 0; i-- {
		if m.audits[i].CaseID == caseID {
			out = append(out, m.audits[i])
		}
	}
	return out, nil
}

func (m *memStore) FindIdentifierGroups(_ context.Context, params clusters.ScanParams) ([]clusters.GroupRow, error) {
	byPAN := make(map[string][]models.Case)
	for _, c := range m.cases {
		if params.Restricted && !containsID(params.ClientIDs, c.ClientID) {
			continue
		}
		if c.PANNumber != nil && *c.PANNumber != "" {
			byPAN[*c.PANNumber] = append(byPAN[*c.PANNumber], *c)
		}
	}

	var rows []clusters.GroupRow
	for value, members := range byPAN {
		if len(members) < 2 {
			continue
		}
		for _, member := range members {
			rows = append(rows, clusters.GroupRow{
				Field:      models.FieldPANNumber,
				GroupValue: value,
				Case:       member,
			})
		}
	}
	return rows, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type memAssignments struct {
	byUser map[uuid.UUID][]uuid.UUID
}

func (m *memAssignments) GetClientIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return m.byUser[userID], nil
}

type apiHarness struct {
	t        *testing.T
	e        *echo.Echo
	store    *memStore
	userID   uuid.UUID
	clientID uuid.UUID
	roles    string
}

func newAPIHarness(t *testing.T) *apiHarness {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	store := newMemStore()
	userID := uuid.New()
	clientID := uuid.New()

	assignmentStore := &memAssignments{byUser: map[uuid.UUID][]uuid.UUID{
		userID: {clientID},
	}}

	service := dedup.NewService(
		store,
		store,
		store,
		nil,
		accessscope.NewResolver(assignmentStore, logger),
		events.NewEmitter(nil, logger),
		searchtoken.NewSigner("integration-secret", time.Hour),
		dedup.Config{},
		logger,
	)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	handlers.NewDedupHandler(service).RegisterRoutes(e.Group(""))

	return &apiHarness{t: t, e: e, store: store, userID: userID, clientID: clientID}
}

func (h *apiHarness) request(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(middleware.HeaderUserID, h.userID.String())
	if h.roles != "" {
		req.Header.Set(middleware.HeaderUserRoles, h.roles)
	}

	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) decode(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func strPtr(s string) *string { return &s }

func TestSearchDecisionHistoryFlow(t *testing.T) {
	h := newAPIHarness(t)

	existing := h.store.addCase(models.Case{
		CaseNumber:    "KYC-1001",
		ApplicantName: "Asha Patel",
		ClientID:      h.clientID,
		PANNumber:     strPtr("ABCDE1234F"),
	})
	fresh := h.store.addCase(models.Case{
		CaseNumber:    "KYC-1002",
		ApplicantName: "Asha P",
		ClientID:      h.clientID,
		PANNumber:     strPtr("ABCDE1234F"),
	})

	// 1. search finds the duplicate and returns a token
	rec := h.request(http.MethodPost, "/cases/deduplication/search", map[string]any{
		"panNumber": " abcde1234f ",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := h.decode(rec)
	data := body["data"].(map[string]any)
	candidates := data["candidates"].([]any)
	require.Len(t, candidates, 2)
	token, _ := data["searchToken"].(string)
	require.NotEmpty(t, token)

	var echoed []models.DuplicateCandidate
	raw, _ := json.Marshal(data["candidates"])
	require.NoError(t, json.Unmarshal(raw, &echoed))

	// 2. decision with the echoed evidence and token is accepted
	rec = h.request(http.MethodPost, "/cases/deduplication/decision", map[string]any{
		"decision": map[string]any{
			"caseId":    fresh.ID.String(),
			"decision":  "USE_EXISTING",
			"rationale": "same PAN as " + existing.CaseNumber,
		},
		"duplicatesFound": echoed,
		"searchCriteria":  map[string]any{"panNumber": "ABCDE1234F"},
		"searchToken":     token,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body = h.decode(rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])

	// 3. history shows the recorded decision
	rec = h.request(http.MethodGet, "/cases/"+fresh.ID.String()+"/deduplication/history", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body = h.decode(rec)
	history, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, history, 1)

	first := history[0].(map[string]any)
	assert.Equal(t, "USE_EXISTING", first["userDecision"])
	assert.Equal(t, h.userID.String(), first["performedBy"])
}

func TestDecisionRejectsTamperedEvidence(t *testing.T) {
	h := newAPIHarness(t)

	target := h.store.addCase(models.Case{
		CaseNumber:    "KYC-2001",
		ApplicantName: "Ravi Kumar",
		ClientID:      h.clientID,
		PANNumber:     strPtr("FGHIJ5678K"),
	})
	h.store.addCase(models.Case{
		CaseNumber:    "KYC-2002",
		ApplicantName: "Ravi K",
		ClientID:      h.clientID,
		PANNumber:     strPtr("FGHIJ5678K"),
	})

	rec := h.request(http.MethodPost, "/cases/deduplication/search", map[string]any{
		"panNumber": "FGHIJ5678K",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := h.decode(rec)["data"].(map[string]any)
	token := data["searchToken"].(string)

	// claim the search found nothing while replaying the old token
	rec = h.request(http.MethodPost, "/cases/deduplication/decision", map[string]any{
		"decision": map[string]any{
			"caseId":    target.ID.String(),
			"decision":  "CREATE_NEW",
			"rationale": "no duplicates found",
		},
		"duplicatesFound": []any{},
		"searchCriteria":  map[string]any{"panNumber": "FGHIJ5678K"},
		"searchToken":     token,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	body := h.decode(rec)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_SEARCH_TOKEN", errBody["code"])
}

func TestSearchScopedToAssignedClients(t *testing.T) {
	h := newAPIHarness(t)

	// a case under a client the user is not assigned to
	h.store.addCase(models.Case{
		CaseNumber:    "KYC-3001",
		ApplicantName: "Meena Iyer",
		ClientID:      uuid.New(),
		PANNumber:     strPtr("KLMNO9012P"),
	})

	rec := h.request(http.MethodPost, "/cases/deduplication/search", map[string]any{
		"panNumber": "KLMNO9012P",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	data := h.decode(rec)["data"].(map[string]any)
	candidates, _ := data["candidates"].([]any)
	assert.Empty(t, candidates)
}

func TestClustersEndpointFlow(t *testing.T) {
	h := newAPIHarness(t)

	for i := 0; i < 3; i++ {
		h.store.addCase(models.Case{
			CaseNumber:    "KYC-400" + string(rune('1'+i)),
			ApplicantName: "Suresh Rao",
			ClientID:      h.clientID,
			PANNumber:     strPtr("PQRST3456U"),
		})
	}

	rec := h.request(http.MethodGet, "/cases/deduplication/clusters?page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := h.decode(rec)["data"].(map[string]any)
	clusterList := data["clusters"].([]any)
	require.Len(t, clusterList, 1)

	first := clusterList[0].(map[string]any)
	assert.Equal(t, "PQRST3456U", first["groupKey"])
	assert.Equal(t, float64(3), first["caseCount"])
}
