package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"core/internal/cache"
	"core/internal/consistency"
	"core/internal/model"
	"core/internal/parser"
	"core/internal/session"
)

// stubRepository serves a fixed catalog and records calls. With
// matchTitle set it only returns products whose title mentions the
// search text, approximating full-text matching.
type stubRepository struct {
	products    []model.Product
	matchTitle  bool
	searchCalls int
	logCalls    int
	lastFilters model.SearchFilters
	lastQuery   string
	err         error
}

func (s *stubRepository) SearchProducts(ctx context.Context, searchText string, queryVec *pgvector.Vector, filters model.SearchFilters, featureTerms []string, limit, offset int) ([]model.Product, int, error) {
	s.searchCalls++
	s.lastFilters = filters
	s.lastQuery = searchText
	if s.err != nil {
		return nil, 0, s.err
	}
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if s.matchTitle && !strings.Contains(p.Title, searchText) {
			continue
		}
		out = append(out, p)
	}
	total := len(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *stubRepository) GetProductByASIN(ctx context.Context, asin string) (*model.Product, error) {
	for _, p := range s.products {
		if p.ASIN == asin {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (s *stubRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	return len(items), nil
}

func (s *stubRepository) LogSearch(ctx context.Context, sessionID, query, cleanQuery string, filters model.SearchFilters, cached bool, resultCount int, asins []string, responseTimeMs int) error {
	s.logCalls++
	return nil
}

// stubAIClient returns a canned proposal.
type stubAIClient struct {
	proposal *model.ToolProposal
	err      error
	enabled  bool
}

func (s *stubAIClient) ProposeSearchParams(ctx context.Context, query string, history []model.ChatMessage) (*model.ToolProposal, error) {
	return s.proposal, s.err
}

func (s *stubAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embeddings not stubbed")
}

func (s *stubAIClient) IsEnabled() bool {
	return s.enabled
}

// failingStore rejects every session operation.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, sessionID string) (*model.SearchContext, error) {
	return nil, errors.New("store down")
}

func (failingStore) Update(ctx context.Context, sessionID string, upd model.ContextUpdate) error {
	return errors.New("store down")
}

func (failingStore) Clear(ctx context.Context, sessionID string) error {
	return errors.New("store down")
}

func catalogFixture() []model.Product {
	return []model.Product{
		product("A1", "running sneakers", float64Ptr(45), float64Ptr(4.5), intPtr(320)),
		product("A2", "trail sneakers", float64Ptr(80), float64Ptr(4.2), intPtr(150)),
		product("A3", "budget sneakers", float64Ptr(25), float64Ptr(3.8), intPtr(40)),
		product("A4", "canvas sneakers", float64Ptr(30), float64Ptr(4.0), intPtr(90)),
	}
}

func newTestService(repo ProductRepository, ai AIClient) *SearchService {
	return NewSearchService(
		repo,
		parser.New(0),
		NewProposer(ai),
		ai,
		session.NewMemoryStore(time.Hour),
		session.NewMemoryTranscript(20),
		cache.NewMemoryCache(time.Minute, 100),
		consistency.New(100, 2.0),
		50,
	)
}

func TestSearchAppliesDeterministicFilters(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	svc := newTestService(repo, nil)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{
		SessionID: "s1",
		Query:     "sneakers under $50",
	})
	require.NoError(t, err)

	require.NotNil(t, repo.lastFilters.MaxPrice)
	assert.Equal(t, 50.0, *repo.lastFilters.MaxPrice)
	for _, r := range resp.Results {
		require.NotNil(t, r.Price)
		assert.LessOrEqual(t, *r.Price, 50.0)
	}
	assert.False(t, resp.Cached)
	assert.NotEmpty(t, resp.SearchID)
}

func TestSearchSecondCallHitsCache(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	svc := newTestService(repo, nil)

	_, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "sneakers under $50"})
	require.NoError(t, err)
	require.Equal(t, 1, repo.searchCalls)

	// An equivalent wording reuses the cached entry.
	resp, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "sneakers below 50 dollars"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.searchCalls, "cache hit should skip the repository")
	assert.True(t, resp.Cached)
}

func TestSearchFollowUpExcludesShown(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	svc := newTestService(repo, nil)

	resp1, err := svc.Search(context.Background(), &model.SearchRequest{
		SessionID: "s1",
		Query:     "sneakers",
		Options:   &model.SearchOptions{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, resp1.Results, 2)
	firstASINs := map[string]bool{}
	for _, r := range resp1.Results {
		firstASINs[r.ASIN] = true
	}

	resp2, err := svc.Search(context.Background(), &model.SearchRequest{
		SessionID: "s1",
		Query:     "show me 2 more",
	})
	require.NoError(t, err)
	assert.Equal(t, "sneakers", resp2.Params.Query, "follow-up should reuse the last category")
	for _, r := range resp2.Results {
		assert.False(t, firstASINs[r.ASIN], "follow-up must not repeat %s", r.ASIN)
	}
}

// Two sessions issuing the same follow-up wording resolve to different
// subjects and must not share a cache entry.
func TestSearchFollowUpCacheIsolatedBySession(t *testing.T) {
	repo := &stubRepository{matchTitle: true, products: []model.Product{
		product("SNK1", "running sneakers", float64Ptr(45), float64Ptr(4.5), intPtr(320)),
		product("SNK2", "trail sneakers", float64Ptr(80), float64Ptr(4.2), intPtr(150)),
		product("SNK3", "canvas sneakers", float64Ptr(30), float64Ptr(4.0), intPtr(90)),
		product("HBG1", "leather handbags", float64Ptr(120), float64Ptr(4.7), intPtr(210)),
		product("HBG2", "canvas handbags", float64Ptr(60), float64Ptr(4.1), intPtr(75)),
	}}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.Search(ctx, &model.SearchRequest{
		SessionID: "a", Query: "sneakers", Options: &model.SearchOptions{Limit: 1},
	})
	require.NoError(t, err)
	respA, err := svc.Search(ctx, &model.SearchRequest{SessionID: "a", Query: "show me 2 more"})
	require.NoError(t, err)
	require.NotEmpty(t, respA.Results)
	for _, r := range respA.Results {
		assert.Contains(t, r.Title, "sneakers")
	}

	_, err = svc.Search(ctx, &model.SearchRequest{
		SessionID: "b", Query: "handbags", Options: &model.SearchOptions{Limit: 1},
	})
	require.NoError(t, err)
	respB, err := svc.Search(ctx, &model.SearchRequest{SessionID: "b", Query: "show me 2 more"})
	require.NoError(t, err)
	assert.False(t, respB.Cached, "another session's follow-up entry must not be reused")
	assert.Equal(t, "handbags", respB.Params.Query)
	require.NotEmpty(t, respB.Results)
	for _, r := range respB.Results {
		assert.Contains(t, r.Title, "handbags")
	}
}

// A search that displays nothing must leave the previous turn's context
// intact so follow-ups keep working.
func TestSearchZeroResultsPreserveContext(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	store := session.NewMemoryStore(time.Hour)
	svc := NewSearchService(
		repo,
		parser.New(0),
		NewProposer(nil),
		nil,
		store,
		session.NewMemoryTranscript(20),
		cache.NewMemoryCache(time.Minute, 100),
		consistency.New(100, 2.0),
		50,
	)
	ctx := context.Background()

	_, err := svc.Search(ctx, &model.SearchRequest{SessionID: "s1", Query: "sneakers"})
	require.NoError(t, err)
	before, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, before)
	require.NotEmpty(t, before.ShownASINs)

	resp, err := svc.Search(ctx, &model.SearchRequest{SessionID: "s1", Query: "handbags over $10000"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	after, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, "sneakers", after.LastCategory)
	assert.Equal(t, before.ShownASINs, after.ShownASINs)
}

// A cached payload is re-validated against the current bounds before
// being shown.
func TestSearchCacheHitRevalidated(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	mc := cache.NewMemoryCache(time.Minute, 100)
	svc := NewSearchService(
		repo,
		parser.New(0),
		NewProposer(nil),
		nil,
		session.NewMemoryStore(time.Hour),
		session.NewMemoryTranscript(20),
		mc,
		consistency.New(100, 2.0),
		50,
	)

	p := parser.New(0)
	parsed := p.Parse("sneakers under $50")
	params := NewReconciler(p).Reconcile(parsed, nil, nil, model.GenderUnspecified)

	mc.Put(context.Background(), searchSignature(parsed, params), params.Filters, &cache.CachedResult{
		Results: []model.ProductSearchResult{
			{Product: product("X9", "gold sneakers", float64Ptr(400), float64Ptr(5), intPtr(10))},
			{Product: product("OK", "cheap sneakers", float64Ptr(20), float64Ptr(4), intPtr(10))},
		},
		Total:    2,
		StoredAt: time.Now(),
	})

	resp, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "sneakers under $50"})
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "OK", resp.Results[0].ASIN)
}

func TestSearchProposalFillsGaps(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	ai := &stubAIClient{
		enabled: true,
		proposal: &model.ToolProposal{
			MinRating: float64Ptr(4.0),
		},
	}
	svc := newTestService(repo, ai)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "sneakers"})
	require.NoError(t, err)

	require.NotNil(t, resp.Params.Filters.MinRating)
	assert.Equal(t, 4.0, *resp.Params.Filters.MinRating)
	for _, r := range resp.Results {
		require.NotNil(t, r.Stars)
		assert.GreaterOrEqual(t, *r.Stars, 4.0)
	}
}

func TestSearchProposalNeverOverridesParse(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	ai := &stubAIClient{
		enabled: true,
		proposal: &model.ToolProposal{
			MaxPrice: float64Ptr(500),
		},
	}
	svc := newTestService(repo, ai)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "sneakers under $40"})
	require.NoError(t, err)
	require.NotNil(t, resp.Params.Filters.MaxPrice)
	assert.Equal(t, 40.0, *resp.Params.Filters.MaxPrice)
}

func TestSearchProposerFailureDegrades(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	ai := &stubAIClient{enabled: true, err: errors.New("model timeout")}
	svc := newTestService(repo, ai)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "sneakers under $50"})
	require.NoError(t, err)
	assert.Nil(t, resp.Proposal)
	assert.NotEmpty(t, resp.Results)
}

func TestSearchSessionStoreFailureDegrades(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	svc := NewSearchService(
		repo,
		parser.New(0),
		NewProposer(nil),
		nil,
		failingStore{},
		session.NewMemoryTranscript(20),
		cache.NewMemoryCache(time.Minute, 100),
		consistency.New(100, 2.0),
		50,
	)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "sneakers"})
	require.NoError(t, err, "session outage must not fail the search")
	assert.NotEmpty(t, resp.Results)
}

func TestSearchRepositoryErrorSurfaces(t *testing.T) {
	repo := &stubRepository{err: errors.New("connection refused")}
	svc := newTestService(repo, nil)

	_, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "sneakers"})
	require.Error(t, err)
}

func TestSearchUpdatesSessionContext(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	store := session.NewMemoryStore(time.Hour)
	svc := NewSearchService(
		repo,
		parser.New(0),
		NewProposer(nil),
		nil,
		store,
		session.NewMemoryTranscript(20),
		cache.NewMemoryCache(time.Minute, 100),
		consistency.New(100, 2.0),
		50,
	)

	_, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "women's sneakers under $50"})
	require.NoError(t, err)

	sess, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "sneakers", sess.LastCategory)
	assert.Equal(t, model.GenderFemale, sess.Gender)
	require.NotNil(t, sess.MaxPrice)
	assert.Equal(t, 50.0, *sess.MaxPrice)
	assert.NotEmpty(t, sess.ShownASINs)
}

func TestSearchMaxLimitCap(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	svc := newTestService(repo, nil)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{
		SessionID: "s1",
		Query:     "sneakers",
		Options:   &model.SearchOptions{Limit: 500},
	})
	require.NoError(t, err)
	assert.Equal(t, 50, resp.Params.Limit)
}

func TestSearchRecordsConsistency(t *testing.T) {
	repo := &stubRepository{products: catalogFixture()}
	svc := newTestService(repo, nil)

	_, err := svc.Search(context.Background(), &model.SearchRequest{SessionID: "s1", Query: "sneakers under $50"})
	require.NoError(t, err)

	report := svc.Monitor().Report("sneakers under $50")
	assert.Equal(t, 1, report.TotalExtractions)
	assert.Equal(t, 1.0, report.PriceExtractionRate)
}
