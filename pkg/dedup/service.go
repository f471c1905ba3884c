// Package dedup implements duplicate-case search, scoring and decision
// recording.
package dedup

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/internal/repositories/cases"
	"github.com/Ramsey-B/clover/internal/repositories/clusters"
	"github.com/Ramsey-B/clover/pkg/accessscope"
	"github.com/Ramsey-B/clover/pkg/apierror"
	"github.com/Ramsey-B/clover/pkg/cluster"
	"github.com/Ramsey-B/clover/pkg/criteria"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/searchtoken"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// CaseStore is the case-read surface the service needs.
type CaseStore interface {
	Search(ctx context.Context, c models.SearchCriteria, params cases.SearchParams) ([]cases.SearchRow, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
}

// AuditStore is the audit-trail surface the service needs.
type AuditStore interface {
	Insert(ctx context.Context, record *models.AuditRecord) (*models.AuditRecord, error)
	ListByCaseID(ctx context.Context, caseID uuid.UUID) ([]models.AuditRecord, error)
}

// ClusterSource supplies duplicate clusters, scoped or cached.
type ClusterSource interface {
	FindIdentifierGroups(ctx context.Context, params clusters.ScanParams) ([]clusters.GroupRow, error)
}

// ClusterCache is the optional warm-result source fed by the miner.
type ClusterCache interface {
	CachedClusters(ctx context.Context) ([]models.DuplicateCluster, bool)
}

// ScopeResolver resolves the caller's client access.
type ScopeResolver interface {
	Resolve(ctx context.Context) (accessscope.Scope, error)
}

// Config holds the service tuning knobs.
type Config struct {
	NameSimilarityThreshold float64
	MaxCandidates           int
	ClusterPageSize         int
}

// Service orchestrates deduplication search, decisions, history and clusters.
type Service struct {
	cases    CaseStore
	audit    AuditStore
	clusters ClusterSource
	cache    ClusterCache
	scopes   ScopeResolver
	emitter  *events.Emitter
	signer   *searchtoken.Signer
	validate *validator.Validate
	config   Config
	logger   ectologger.Logger
}

// NewService creates the deduplication service. cache, emitter and signer may
// be nil; those features degrade gracefully.
func NewService(
	caseStore CaseStore,
	auditStore AuditStore,
	clusterSource ClusterSource,
	cache ClusterCache,
	scopes ScopeResolver,
	emitter *events.Emitter,
	signer *searchtoken.Signer,
	config Config,
	logger ectologger.Logger,
) *Service {
	if config.NameSimilarityThreshold <= 0 {
		config.NameSimilarityThreshold = 0.3
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = 50
	}
	if config.ClusterPageSize <= 0 {
		config.ClusterPageSize = 500
	}

	return &Service{
		cases:    caseStore,
		audit:    auditStore,
		clusters: clusterSource,
		cache:    cache,
		scopes:   scopes,
		emitter:  emitter,
		signer:   signer,
		validate: validator.New(),
		config:   config,
		logger:   logger,
	}
}

// Search normalizes the criteria, finds candidate cases within the caller's
// client scope and returns them ranked.
func (s *Service) Search(ctx context.Context, raw models.SearchCriteria) (*models.SearchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Service.Search")
	defer span.End()

	start := time.Now()

	scope, err := s.scopes.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	normalized, err := criteria.Normalize(raw)
	if err != nil {
		return nil, err
	}

	rows, err := s.cases.Search(ctx, normalized, cases.SearchParams{
		MinSimilarity: s.config.NameSimilarityThreshold,
		Limit:         s.config.MaxCandidates * 2,
		ClientIDs:     scope.ClientIDs,
		Restricted:    !scope.Unrestricted,
	})
	if err != nil {
		metrics.RecordSearch(time.Since(start), 0, false)
		return nil, err
	}

	candidates := Rank(rows, s.config.NameSimilarityThreshold)
	if len(candidates) > s.config.MaxCandidates {
		candidates = candidates[:s.config.MaxCandidates]
	}

	result := &models.SearchResult{Candidates: candidates}
	if s.signer != nil {
		token, err := s.signer.Sign(scope.UserID, normalized, candidates)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to sign search result")
		} else {
			result.SearchToken = token
		}
	}

	metrics.RecordSearch(time.Since(start), len(candidates), true)
	if s.emitter != nil {
		s.emitter.EmitSearchPerformed(ctx, scope.UserID.String(), candidates)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"candidates": len(candidates),
	}).Debug("Duplicate search complete")

	return result, nil
}

// RecordDecision validates and appends an operator decision to the audit
// trail, snapshotting what the operator saw.
func (s *Service) RecordDecision(ctx context.Context, req models.DecisionRequest) (*models.AuditRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Service.RecordDecision")
	defer span.End()

	scope, err := s.scopes.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	decision := req.Decision
	if decision.CaseID == uuid.Nil {
		return nil, apierror.BadRequest(apierror.CodeMissingCaseID, "case id is required")
	}
	if !decision.Decision.IsValid() {
		return nil, apierror.BadRequest(apierror.CodeInvalidDecisionType, "decision must be one of CREATE_NEW, USE_EXISTING, MERGE_CASES")
	}
	if err := s.validate.Struct(decision); err != nil {
		return nil, apierror.BadRequest(apierror.CodeInvalidDecisionData, "decision rationale is required")
	}

	target, err := s.cases.GetByID(ctx, decision.CaseID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(target.ClientID) {
		return nil, apierror.Forbidden(apierror.CodeCaseAccessDenied, "no access to this case")
	}

	// snapshots default to empty, never null, so the audit row is always
	// self-contained
	searchCriteria := models.SearchCriteria{}
	if req.SearchCriteria != nil {
		searchCriteria = *req.SearchCriteria
	}
	duplicates := req.DuplicatesFound
	if duplicates == nil {
		duplicates = []models.DuplicateCandidate{}
	}

	if s.signer != nil && req.SearchToken != "" {
		if err := s.signer.Verify(req.SearchToken, scope.UserID, searchCriteria, duplicates); err != nil {
			return nil, err
		}
	}

	record := &models.AuditRecord{
		CaseID:          decision.CaseID,
		SearchCriteria:  searchCriteria,
		DuplicatesFound: duplicates,
		UserDecision:    decision.Decision,
		Rationale:       decision.Rationale,
		PerformedBy:     scope.UserID,
	}

	auditStart := time.Now()
	saved, err := s.audit.Insert(ctx, record)
	if err != nil {
		return nil, err
	}
	metrics.RecordDecision(string(decision.Decision), time.Since(auditStart))

	if s.emitter != nil {
		s.emitter.EmitDecisionRecorded(ctx, saved)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id":  saved.CaseID,
		"decision": saved.UserDecision,
	}).Info("Recorded deduplication decision")

	return saved, nil
}

// History returns a case's audit trail, newest first, after checking the
// caller may see the case.
func (s *Service) History(ctx context.Context, caseID uuid.UUID) ([]models.AuditRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Service.History")
	defer span.End()

	scope, err := s.scopes.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	target, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(target.ClientID) {
		return nil, apierror.Forbidden(apierror.CodeCaseAccessDenied, "no access to this case")
	}

	return s.audit.ListByCaseID(ctx, caseID)
}

// Clusters returns a page of duplicate clusters within the caller's scope.
// Unrestricted callers are served from the miner's cache when it is warm;
// restricted callers always get a fresh scoped scan.
func (s *Service) Clusters(ctx context.Context, page, limit int) (*models.ClusterResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Service.Clusters")
	defer span.End()

	scope, err := s.scopes.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	var all []models.DuplicateCluster
	if scope.Unrestricted && s.cache != nil {
		if cached, ok := s.cache.CachedClusters(ctx); ok {
			all = cached
		}
	}

	if all == nil {
		rows, err := s.clusters.FindIdentifierGroups(ctx, clusters.ScanParams{
			ClientIDs:  scope.ClientIDs,
			Restricted: !scope.Unrestricted,
			PageSize:   s.config.ClusterPageSize,
		})
		if err != nil {
			return nil, err
		}
		all = cluster.BuildClusters(rows)
	}

	return paginate(all, page, limit), nil
}

func paginate(all []models.DuplicateCluster, page, limit int) *models.ClusterResult {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	total := len(all)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &models.ClusterResult{
		Clusters: all[start:end],
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}
