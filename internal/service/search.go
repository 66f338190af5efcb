package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"core/internal/cache"
	"core/internal/consistency"
	"core/internal/model"
	"core/internal/parser"
	"core/internal/session"
	"core/internal/utils"
)

// fetchPadding widens repository fetches beyond the display limit so
// strict re-filtering and follow-up de-duplication still fill a page.
const fetchPadding = 10

// historyWindow is how many transcript turns feed the model proposal
// and the conversation gender vote.
const historyWindow = 10

// ProductRepository is the catalog surface the search pipeline consumes.
type ProductRepository interface {
	SearchProducts(ctx context.Context, searchText string, queryVec *pgvector.Vector, filters model.SearchFilters, featureTerms []string, limit, offset int) ([]model.Product, int, error)
	GetProductByASIN(ctx context.Context, asin string) (*model.Product, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
	LogSearch(ctx context.Context, sessionID, query, cleanQuery string, filters model.SearchFilters, cached bool, resultCount int, asins []string, responseTimeMs int) error
}

// SearchService runs the full pipeline: parse, propose, reconcile,
// cache, search, re-validate, de-duplicate, update session, record.
type SearchService struct {
	repo        ProductRepository
	parser      *parser.Parser
	reconciler  *Reconciler
	proposer    *Proposer
	aiClient    AIClient
	sessions    session.Store
	transcripts session.TranscriptStore
	cache       cache.ResultCache
	monitor     *consistency.Monitor
	maxLimit    int
}

// NewSearchService wires the pipeline. The AI client may be nil; every
// deterministic stage works without it.
func NewSearchService(
	repo ProductRepository,
	p *parser.Parser,
	proposer *Proposer,
	aiClient AIClient,
	sessions session.Store,
	transcripts session.TranscriptStore,
	resultCache cache.ResultCache,
	monitor *consistency.Monitor,
	maxLimit int,
) *SearchService {
	if maxLimit <= 0 {
		maxLimit = 50
	}
	return &SearchService{
		repo:        repo,
		parser:      p,
		reconciler:  NewReconciler(p),
		proposer:    proposer,
		aiClient:    aiClient,
		sessions:    sessions,
		transcripts: transcripts,
		cache:       resultCache,
		monitor:     monitor,
		maxLimit:    maxLimit,
	}
}

// Parser exposes the deterministic parser for debug surfaces.
func (s *SearchService) Parser() *parser.Parser {
	return s.parser
}

// Monitor exposes the consistency monitor for debug surfaces.
func (s *SearchService) Monitor() *consistency.Monitor {
	return s.monitor
}

// GetProduct looks a product up by its catalog identifier.
func (s *SearchService) GetProduct(ctx context.Context, asin string) (*model.Product, error) {
	return s.repo.GetProductByASIN(ctx, asin)
}

// UpdateEmbeddings writes a batch of precomputed product embeddings.
func (s *SearchService) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	return s.repo.BatchUpdateEmbeddings(ctx, items)
}

// Search executes one conversational search request.
func (s *SearchService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	startTime := time.Now()
	sessionID := req.SessionID

	parsed := s.parser.Parse(req.Query)

	sessCtx, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).Warn("session store unavailable, continuing with empty context")
		sessCtx = nil
	}

	history, err := s.transcripts.Recent(ctx, sessionID, historyWindow)
	if err != nil {
		logrus.WithError(err).Warn("transcript unavailable, continuing without history")
		history = nil
	}

	genderHint := model.GenderUnspecified
	if parsed.Gender == model.GenderUnspecified && (sessCtx == nil || sessCtx.Gender == model.GenderUnspecified) {
		genderHint = parser.AggregateGender(userTexts(history))
	}

	proposal := s.proposer.Propose(ctx, req.Query, history)

	params := s.reconciler.Reconcile(parsed, proposal, sessCtx, genderHint)
	if req.Options != nil {
		if req.Options.Limit > 0 {
			params.Limit = req.Options.Limit
		}
		if req.Options.Offset > 0 {
			params.Offset = req.Options.Offset
		}
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}

	results, total, cached, err := s.fetchResults(ctx, req, parsed, params)
	if err != nil {
		return nil, err
	}

	shown := []string{}
	if sessCtx != nil {
		shown = sessCtx.ShownASINs
	}
	display := results
	if params.IsFollowUp && len(shown) > 0 {
		display = excludeShown(results, shown)
	}
	if params.Offset >= len(display) {
		display = nil
	} else {
		display = display[params.Offset:]
	}
	if len(display) > params.Limit {
		display = display[:params.Limit]
	}

	// Context is carried forward only by searches that showed something;
	// a dead end must not wipe the previous turn's category and shown IDs.
	if len(display) > 0 {
		s.updateSession(ctx, sessionID, params, shown, display)
	}
	s.appendTranscript(ctx, sessionID, req.Query, len(display))
	s.monitor.Record(sessionID, parsed, proposal, len(display))

	responseTime := time.Since(startTime).Milliseconds()

	// Search logging must not slow down the response.
	go func() {
		logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		asins := make([]string, len(display))
		for i, r := range display {
			asins[i] = r.ASIN
		}
		if err := s.repo.LogSearch(logCtx, sessionID, req.Query, params.Query, params.Filters, cached, len(display), asins, int(responseTime)); err != nil {
			logrus.WithError(err).Warn("failed to log search")
		}
	}()

	return &model.SearchResponse{
		SearchID:  uuid.NewString(),
		SessionID: sessionID,
		Results:   display,
		Total:     total,
		Parsed:    parsed,
		Proposal:  proposal,
		Params:    params,
		Cached:    cached,
		Took:      responseTime,
	}, nil
}

// fetchResults consults the cache first; on a miss it searches the
// catalog, strictly re-validates, sorts and stores the outcome.
func (s *SearchService) fetchResults(
	ctx context.Context,
	req *model.SearchRequest,
	parsed *model.ParsedQuery,
	params *model.ReconciledParams,
) ([]model.ProductSearchResult, int, bool, error) {
	featureTerms := utils.ExtractFeatureTerms(params.Query)
	signature := searchSignature(parsed, params)

	if hit, ok := s.cache.Get(ctx, signature, params.Filters); ok {
		// Hits are re-validated so a stale or foreign payload can never
		// surface a result outside the current bounds.
		return revalidateResults(hit.Results, params.Filters, featureTerms), hit.Total, true, nil
	}

	queryVec := s.embedQuery(ctx, req, params.Query)

	fetchLimit := params.Limit + params.Offset + fetchPadding
	products, total, err := s.repo.SearchProducts(ctx, params.Query, queryVec, params.Filters, featureTerms, fetchLimit, 0)
	if err != nil {
		return nil, 0, false, fmt.Errorf("catalog search failed: %w", err)
	}

	products = ApplyFilters(products, params.Filters, featureTerms)
	SortResults(products, params.Filters.SortOrder)
	results := ScoreResults(products)

	s.cache.Put(ctx, signature, params.Filters, &cache.CachedResult{
		Results:  results,
		Total:    total,
		StoredAt: time.Now(),
	})

	return results, total, false, nil
}

// searchSignature extends the parse signature with the reconciled search
// subject. Follow-ups and elliptical queries parse identically across
// sessions but resolve to different subjects, and those must never share
// a cache entry.
func searchSignature(parsed *model.ParsedQuery, params *model.ReconciledParams) string {
	return parsed.Signature + "||subject:" + params.Query
}

func (s *SearchService) embedQuery(ctx context.Context, req *model.SearchRequest, query string) *pgvector.Vector {
	if s.aiClient == nil || !s.aiClient.IsEnabled() || query == "" {
		return nil
	}
	if req.Options != nil && !req.Options.Semantic {
		return nil
	}
	embeddings, err := s.aiClient.CreateEmbeddings(ctx, []string{query})
	if err != nil || len(embeddings) == 0 {
		logrus.WithError(err).Warn("query embedding unavailable, using full-text search")
		return nil
	}
	vec := pgvector.NewVector(embeddings[0])
	return &vec
}

func (s *SearchService) updateSession(
	ctx context.Context,
	sessionID string,
	params *model.ReconciledParams,
	previouslyShown []string,
	display []model.ProductSearchResult,
) {
	newASINs := make([]string, len(display))
	for i, r := range display {
		newASINs[i] = r.ASIN
	}
	// Follow-ups accumulate shown items; a fresh search starts over.
	if params.IsFollowUp {
		newASINs = append(append([]string{}, previouslyShown...), newASINs...)
	}

	count := len(display)
	upd := model.ContextUpdate{
		ResultCount: &count,
		ShownASINs:  newASINs,
		MinPrice:    params.Filters.MinPrice,
		MaxPrice:    params.Filters.MaxPrice,
	}
	if params.Category != "" {
		upd.Category = &params.Category
	}
	if params.Filters.Gender != model.GenderUnspecified {
		g := params.Filters.Gender
		upd.Gender = &g
	}

	if err := s.sessions.Update(ctx, sessionID, upd); err != nil {
		logrus.WithError(err).Warn("failed to update session context")
	}
}

func (s *SearchService) appendTranscript(ctx context.Context, sessionID, query string, shown int) {
	now := time.Now()
	if err := s.transcripts.Append(ctx, sessionID, model.ChatMessage{Role: "user", Content: query, Timestamp: now}); err != nil {
		logrus.WithError(err).Warn("failed to append user message")
		return
	}
	reply := fmt.Sprintf("Showing %d products.", shown)
	if err := s.transcripts.Append(ctx, sessionID, model.ChatMessage{Role: "assistant", Content: reply, Timestamp: now}); err != nil {
		logrus.WithError(err).Warn("failed to append assistant message")
	}
}

func excludeShown(results []model.ProductSearchResult, shown []string) []model.ProductSearchResult {
	seen := make(map[string]struct{}, len(shown))
	for _, asin := range shown {
		seen[asin] = struct{}{}
	}
	out := make([]model.ProductSearchResult, 0, len(results))
	for _, r := range results {
		if _, dup := seen[r.ASIN]; dup {
			continue
		}
		out = append(out, r)
	}
	return out
}

func userTexts(history []model.ChatMessage) []string {
	var texts []string
	for _, m := range history {
		if m.Role == "user" {
			texts = append(texts, m.Content)
		}
	}
	return texts
}

