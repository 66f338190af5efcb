package consistency

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"core/internal/model"
)

func float64Ptr(f float64) *float64 {
	return &f
}

func strPtr(s string) *string {
	return &s
}

func parsedWith(query string, maxPrice *float64) *model.ParsedQuery {
	return &model.ParsedQuery{
		Original:   query,
		Normalized: query,
		MaxPrice:   maxPrice,
	}
}

func TestFingerprintBucketsEquivalentWordings(t *testing.T) {
	a := Fingerprint("shoes under 50 dollars")
	b := Fingerprint("shoes under $50")
	c := Fingerprint("show me shoes under $50")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.Len(t, a, 8)

	assert.NotEqual(t, a, Fingerprint("shoes under $60"))
}

func TestRecordAndReport(t *testing.T) {
	m := New(0, 0)

	for i := 0; i < 4; i++ {
		m.Record("s1", parsedWith("shoes under $50", float64Ptr(50)), nil, 10)
	}
	m.Record("s1", parsedWith("shoes under $50", nil), nil, 10)

	report := m.Report("shoes under $50")
	assert.Equal(t, 5, report.TotalExtractions)
	assert.InDelta(t, 0.8, report.PriceExtractionRate, 1e-9)
	assert.Equal(t, 0.0, report.RatingExtractionRate)
	assert.True(t, report.Consistent)
	assert.NotEmpty(t, report.SampleQueries)
}

func TestReportFlagsResultCountDrift(t *testing.T) {
	m := New(0, 0)

	m.Record("s1", parsedWith("bags", nil), nil, 2)
	m.Record("s1", parsedWith("bags", nil), nil, 20)
	m.Record("s1", parsedWith("bags", nil), nil, 11)

	report := m.Report("bags")
	assert.False(t, report.Consistent)
	assert.Greater(t, report.ResultCountStdDev, DefaultVarianceThreshold)
}

func TestReportUnseenQueryIsZero(t *testing.T) {
	m := New(0, 0)
	report := m.Report("never asked")
	assert.Equal(t, 0, report.TotalExtractions)
	assert.True(t, report.Consistent)
}

func TestProposalMatchTracking(t *testing.T) {
	m := New(0, 0)

	parsed := parsedWith("shoes under $50", float64Ptr(50))
	agreeing := &model.ToolProposal{MaxPrice: float64Ptr(50)}
	disagreeing := &model.ToolProposal{MaxPrice: float64Ptr(45), SortBy: strPtr("rating")}

	m.Record("s1", parsed, agreeing, 10)
	m.Record("s1", parsed, disagreeing, 10)
	m.Record("s1", parsed, nil, 10)

	report := m.Report("shoes under $50")
	assert.Equal(t, 3, report.TotalExtractions)
	assert.Equal(t, 2, report.WithProposal)
	assert.InDelta(t, 0.5, report.ProposalMatchRate, 1e-9)

	history := m.History("shoes under $50", 10)
	require.Len(t, history, 3)
	// Newest first.
	assert.Nil(t, history[0].Proposed)
	require.NotNil(t, history[1].Matches)
	assert.False(t, history[1].Matches.All())
	require.NotNil(t, history[2].Matches)
	assert.True(t, history[2].Matches.All())
}

func TestLogIsBounded(t *testing.T) {
	m := New(10, 0)

	for i := 0; i < 25; i++ {
		m.Record("s1", parsedWith(fmt.Sprintf("query %d", i), nil), nil, 5)
	}

	assert.Equal(t, 10, m.Len())
	// The oldest entries are gone from history too.
	assert.Empty(t, m.History("query 0", 10))
	assert.Len(t, m.History("query 24", 10), 1)
}

func TestExportAndClear(t *testing.T) {
	m := New(10, 0)

	m.Record("s1", parsedWith("shoes under $50", float64Ptr(50)), nil, 5)
	m.Record("s2", parsedWith("handbags", nil), nil, 3)

	exported := m.Export()
	require.Len(t, exported, 2)
	// Oldest first, and a copy rather than the live slice.
	assert.Equal(t, "shoes under $50", exported[0].Query)
	assert.Equal(t, "handbags", exported[1].Query)
	exported[0].Query = "mutated"
	assert.Equal(t, "shoes under $50", m.Export()[0].Query)

	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Export())
	assert.Equal(t, 0, m.Report("shoes under $50").TotalExtractions)
}
