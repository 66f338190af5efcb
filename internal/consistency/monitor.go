package consistency

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"core/internal/model"
)

// DefaultMaxLogSize bounds the in-process extraction log.
const DefaultMaxLogSize = 1000

// DefaultVarianceThreshold is the stddev of shown result counts above
// which a query family is reported as inconsistent.
const DefaultVarianceThreshold = 2.0

// ParamsSnapshot captures the comparable extraction fields.
type ParamsSnapshot struct {
	MinPrice  *float64 `json:"min_price,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	Sort      string   `json:"sort,omitempty"`
}

// FieldMatches records per-field agreement between the deterministic
// parse and the model proposal.
type FieldMatches struct {
	MinPrice  bool `json:"min_price"`
	MaxPrice  bool `json:"max_price"`
	MinRating bool `json:"min_rating"`
	Sort      bool `json:"sort"`
}

// All reports full agreement.
func (m FieldMatches) All() bool {
	return m.MinPrice && m.MaxPrice && m.MinRating && m.Sort
}

// Entry is one recorded extraction.
type Entry struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	SessionID   string          `json:"session_id,omitempty"`
	Query       string          `json:"query"`
	Normalized  string          `json:"normalized_query"`
	Fingerprint string          `json:"fingerprint"`
	Parsed      ParamsSnapshot  `json:"parsed"`
	Proposed    *ParamsSnapshot `json:"proposed,omitempty"`
	Matches     *FieldMatches   `json:"matches,omitempty"`
	ResultCount int             `json:"result_count"`
}

// Report summarizes extraction behavior for a query family, or for the
// whole log when the query is empty.
type Report struct {
	Query                string   `json:"query,omitempty"`
	Fingerprint          string   `json:"fingerprint,omitempty"`
	TotalExtractions     int      `json:"total_extractions"`
	PriceExtractionRate  float64  `json:"price_extraction_rate"`
	RatingExtractionRate float64  `json:"rating_extraction_rate"`
	WithProposal         int      `json:"with_proposal"`
	ProposalMatchRate    float64  `json:"proposal_match_rate"`
	ResultCountStdDev    float64  `json:"result_count_stddev"`
	Consistent           bool     `json:"consistent"`
	SampleQueries        []string `json:"sample_queries,omitempty"`
}

// Monitor keeps a bounded log of extractions and answers drift queries.
// Recording never fails and never blocks a search.
type Monitor struct {
	mu        sync.RWMutex
	entries   []Entry
	maxSize   int
	threshold float64
}

// New creates a Monitor. Non-positive arguments fall back to defaults.
func New(maxSize int, varianceThreshold float64) *Monitor {
	if maxSize <= 0 {
		maxSize = DefaultMaxLogSize
	}
	if varianceThreshold <= 0 {
		varianceThreshold = DefaultVarianceThreshold
	}
	return &Monitor{maxSize: maxSize, threshold: varianceThreshold}
}

// Record logs one extraction outcome.
func (m *Monitor) Record(sessionID string, parsed *model.ParsedQuery, proposal *model.ToolProposal, resultCount int) {
	entry := Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		SessionID:   sessionID,
		Query:       parsed.Original,
		Normalized:  parsed.Normalized,
		Fingerprint: Fingerprint(parsed.Original),
		Parsed: ParamsSnapshot{
			MinPrice:  parsed.MinPrice,
			MaxPrice:  parsed.MaxPrice,
			MinRating: parsed.MinRating,
			Sort:      string(parsed.SortOrder),
		},
		ResultCount: resultCount,
	}
	if proposal != nil {
		proposed := ParamsSnapshot{
			MinPrice:  proposal.MinPrice,
			MaxPrice:  proposal.MaxPrice,
			MinRating: proposal.MinRating,
		}
		if proposal.SortBy != nil {
			proposed.Sort = *proposal.SortBy
		}
		entry.Proposed = &proposed
		entry.Matches = &FieldMatches{
			MinPrice:  floatPtrEq(entry.Parsed.MinPrice, proposed.MinPrice),
			MaxPrice:  floatPtrEq(entry.Parsed.MaxPrice, proposed.MaxPrice),
			MinRating: floatPtrEq(entry.Parsed.MinRating, proposed.MinRating),
			Sort:      entry.Parsed.Sort == proposed.Sort,
		}
	}

	m.mu.Lock()
	m.entries = append(m.entries, entry)
	if len(m.entries) > m.maxSize {
		m.entries = m.entries[len(m.entries)-m.maxSize:]
	}
	m.mu.Unlock()
}

// Report computes drift statistics for one query family, or the whole
// log when query is empty. An unseen query yields a zero report.
func (m *Monitor) Report(query string) Report {
	fp := ""
	if strings.TrimSpace(query) != "" {
		fp = Fingerprint(query)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	report := Report{Query: query, Fingerprint: fp, Consistent: true}
	var priceHits, ratingHits, fullMatches int
	var counts []float64
	samples := make(map[string]struct{})

	for _, e := range m.entries {
		if fp != "" && e.Fingerprint != fp {
			continue
		}
		report.TotalExtractions++
		if e.Parsed.MinPrice != nil || e.Parsed.MaxPrice != nil {
			priceHits++
		}
		if e.Parsed.MinRating != nil {
			ratingHits++
		}
		if e.Proposed != nil {
			report.WithProposal++
			if e.Matches != nil && e.Matches.All() {
				fullMatches++
			}
		}
		counts = append(counts, float64(e.ResultCount))
		if len(samples) < 5 {
			samples[e.Query] = struct{}{}
		}
	}

	if report.TotalExtractions == 0 {
		return report
	}
	total := float64(report.TotalExtractions)
	report.PriceExtractionRate = float64(priceHits) / total
	report.RatingExtractionRate = float64(ratingHits) / total
	if report.WithProposal > 0 {
		report.ProposalMatchRate = float64(fullMatches) / float64(report.WithProposal)
	}
	report.ResultCountStdDev = stddev(counts)
	report.Consistent = report.ResultCountStdDev <= m.threshold
	for q := range samples {
		report.SampleQueries = append(report.SampleQueries, q)
	}
	return report
}

// History returns the most recent entries for a query family,
// newest first.
func (m *Monitor) History(query string, limit int) []Entry {
	fp := Fingerprint(query)
	if limit <= 0 {
		limit = 20
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].Fingerprint == fp {
			out = append(out, m.entries[i])
		}
	}
	return out
}

// Len reports the current log size.
func (m *Monitor) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Export returns a copy of the whole extraction log, oldest first.
func (m *Monitor) Export() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Clear drops every recorded entry.
func (m *Monitor) Clear() {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
}

var (
	fpWsRe        = regexp.MustCompile(`\s+`)
	fpLeadInRe    = regexp.MustCompile(`^(?:show\s+me|find\s+me|find|search\s+for|give\s+me|get\s+me|i\s+want|looking\s+for)\s+`)
	fpNumDollarRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\$`)
	fpDollarNumRe = regexp.MustCompile(`\$\s+(\d)`)
)

var fpReplacer = strings.NewReplacer(
	"dollars", "$",
	"dollar", "$",
	"bucks", "$",
	" to ", "-",
	" and ", "-",
)

// Fingerprint derives a stable 8-character id for a query family, so
// that wordings like "shoes under 50 dollars" and "shoes under $50"
// land in the same bucket.
func Fingerprint(query string) string {
	norm := strings.TrimSpace(fpWsRe.ReplaceAllString(strings.ToLower(query), " "))
	norm = fpLeadInRe.ReplaceAllString(norm, "")
	norm = fpReplacer.Replace(norm)
	// Canonicalize dollar placement so "50 $" and "$ 50" both read "$50".
	norm = fpNumDollarRe.ReplaceAllString(norm, "$$$1")
	norm = fpDollarNumRe.ReplaceAllString(norm, "$$$1")
	sum := md5.Sum([]byte(norm))
	return hex.EncodeToString(sum[:])[:8]
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}
