package parser

import (
	"testing"

	"core/internal/model"
)

func float64Ptr(f float64) *float64 {
	return &f
}

func intPtr(i int) *int {
	return &i
}

func TestParsePrice(t *testing.T) {
	p := New(0)

	tests := []struct {
		name     string
		query    string
		minPrice *float64
		maxPrice *float64
	}{
		{
			name:     "explicit range",
			query:    "dresses from $50 to $100",
			minPrice: float64Ptr(50),
			maxPrice: float64Ptr(100),
		},
		{
			name:     "between range",
			query:    "sneakers between 30 and 80 dollars",
			minPrice: float64Ptr(30),
			maxPrice: float64Ptr(80),
		},
		{
			name:     "dash range",
			query:    "handbags $40-$90",
			minPrice: float64Ptr(40),
			maxPrice: float64Ptr(90),
		},
		{
			name:     "dash range with trailing dollar sign",
			query:    "handbags 40-$90",
			minPrice: float64Ptr(40),
			maxPrice: float64Ptr(90),
		},
		{
			name:     "dash range with unit suffix",
			query:    "handbags 40-90 dollars",
			minPrice: float64Ptr(40),
			maxPrice: float64Ptr(90),
		},
		{
			name:  "bare number pair is not a price",
			query: "size 8-10 running sneakers",
		},
		{
			name:     "inverted range normalizes",
			query:    "watches from $200 to $100",
			minPrice: float64Ptr(100),
			maxPrice: float64Ptr(200),
		},
		{
			name:     "under sets max",
			query:    "sneakers under $50",
			maxPrice: float64Ptr(50),
		},
		{
			name:     "less than sets max",
			query:    "bags less than 75 dollars",
			maxPrice: float64Ptr(75),
		},
		{
			name:     "over sets min",
			query:    "watches over $200",
			minPrice: float64Ptr(200),
		},
		{
			name:     "around expands twenty percent",
			query:    "a necklace around $100",
			minPrice: float64Ptr(80),
			maxPrice: float64Ptr(120),
		},
		{
			name:     "bare dollar amount is implicit max",
			query:    "running shoes $60",
			maxPrice: float64Ptr(60),
		},
		{
			name:     "dollars word equals dollar sign",
			query:    "running shoes 60 dollars",
			maxPrice: float64Ptr(60),
		},
		{
			name:     "direction word flips bare amount",
			query:    "gifts $50 or more",
			minPrice: float64Ptr(50),
		},
		{
			name:  "star count is not a price",
			query: "products between 4 and 5 stars",
		},
		{
			name:  "no price",
			query: "leather wallets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.query)
			checkFloat(t, "minPrice", got.MinPrice, tt.minPrice)
			checkFloat(t, "maxPrice", got.MaxPrice, tt.maxPrice)
		})
	}
}

func TestParseRating(t *testing.T) {
	p := New(0)

	tests := []struct {
		name      string
		query     string
		minRating *float64
	}{
		{"plus stars", "headphones 4+ stars", float64Ptr(4)},
		{"or more", "headphones with 4 stars or more", float64Ptr(4)},
		{"at least", "headphones with at least 4.5 stars", float64Ptr(4.5)},
		{"exactly", "exactly 3 stars", float64Ptr(3)},
		{"highly rated", "highly rated sneakers", float64Ptr(4)},
		{"top rated phrase", "top-rated coffee makers", float64Ptr(4)},
		{"clamped to five", "7+ stars", float64Ptr(5)},
		{"no rating", "sneakers under $50", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.query)
			checkFloat(t, "minRating", got.MinRating, tt.minRating)
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	p := New(0)

	tests := []struct {
		query string
		want  model.SortOrder
	}{
		{"cheapest running shoes", model.SortPriceLowToHigh},
		{"affordable handbags", model.SortPriceLowToHigh},
		{"most expensive watches", model.SortPriceHighToLow},
		{"luxury watches", model.SortPriceHighToLow},
		{"best rated headphones", model.SortRating},
		{"most reviewed laptops", model.SortPopular},
		{"best selling books", model.SortPopular},
		{"plain sneakers", model.SortNone},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := p.Parse(tt.query); got.SortOrder != tt.want {
				t.Errorf("sort = %q, want %q", got.SortOrder, tt.want)
			}
		})
	}
}

func TestDetectGender(t *testing.T) {
	p := New(0)

	tests := []struct {
		query string
		want  model.Gender
	}{
		{"men's running shoes", model.GenderMale},
		{"a watch for him", model.GenderMale},
		{"gift for my wife", model.GenderFemale},
		{"something for her", model.GenderFemale},
		{"present for my husband", model.GenderMale},
		{"a necklace for my daughter", model.GenderFemale},
		{"women's boots", model.GenderFemale},
		{"plain sneakers", model.GenderUnspecified},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := p.Parse(tt.query); got.Gender != tt.want {
				t.Errorf("gender = %q, want %q", got.Gender, tt.want)
			}
		})
	}
}

func TestFollowUpDetection(t *testing.T) {
	p := New(0)

	tests := []struct {
		name       string
		query      string
		isFollowUp bool
		count      *int
	}{
		{"explicit count", "show me 3 more", true, intPtr(3)},
		{"another count", "2 another options", true, intPtr(2)},
		{"show more", "show me more", true, nil},
		{"what else", "what else do you have", true, nil},
		{"short similar", "anything similar", true, nil},
		{"more than price is not a followup", "bags more than $100", false, nil},
		{"fresh query", "red dresses under $80 for the summer party", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.query)
			if got.IsFollowUp != tt.isFollowUp {
				t.Errorf("isFollowUp = %v, want %v", got.IsFollowUp, tt.isFollowUp)
			}
			checkInt(t, "requestedCount", got.RequestedCount, tt.count)
		})
	}
}

func TestCleanQuery(t *testing.T) {
	p := New(0)

	tests := []struct {
		query string
		want  string
	}{
		{"show me sneakers under $50", "sneakers"},
		{"highly rated wireless earbuds", "wireless earbuds"},
		{"find me cheapest leather bags", "leather bags"},
		{"dresses from $50 to $100", "dresses"},
		{"3 more under $30", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := p.Parse(tt.query); got.CleanQuery != tt.want {
				t.Errorf("cleanQuery = %q, want %q", got.CleanQuery, tt.want)
			}
		})
	}
}

func TestSignatureStability(t *testing.T) {
	p := New(0)

	a := p.Parse("sneakers under 50 dollars")
	b := p.Parse("sneakers under $50")
	if a.Signature != b.Signature {
		t.Errorf("equivalent phrasings produced different signatures: %q vs %q", a.Signature, b.Signature)
	}

	c := p.Parse("sneakers under $60")
	if a.Signature == c.Signature {
		t.Errorf("different filters share a signature: %q", a.Signature)
	}

	for i := 0; i < 5; i++ {
		if got := p.Parse("sneakers under $50"); got.Signature != b.Signature {
			t.Fatalf("signature not deterministic: %q vs %q", got.Signature, b.Signature)
		}
	}
}

func TestEmptyQuery(t *testing.T) {
	p := New(0)

	for _, q := range []string{"", "   ", "\t\n"} {
		got := p.Parse(q)
		if got.MinPrice != nil || got.MaxPrice != nil || got.MinRating != nil {
			t.Errorf("empty query %q produced filters", q)
		}
		if got.CleanQuery != "" {
			t.Errorf("empty query %q produced clean query %q", q, got.CleanQuery)
		}
	}
}

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		query    string
		keyword  string
		category string
		ok       bool
	}{
		{"red summer dress", "dress", "clothing", true},
		{"leather handbag with gold buckle", "handbag", "bags", true},
		{"silver necklace", "necklace", "jewelry", true},
		{"running shoes and a watch", "shoes", "shoes", true},
		{"generic accessories", "accessories", "bags", true},
		{"wireless headphones", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			kw, cat, ok := ExtractCategory(tt.query)
			if ok != tt.ok || kw != tt.keyword || cat != tt.category {
				t.Errorf("ExtractCategory(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.query, kw, cat, ok, tt.keyword, tt.category, tt.ok)
			}
		})
	}
}

func TestAggregateGender(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  model.Gender
	}{
		{"majority male", []string{"shoes for him", "a watch for my husband", "red dresses"}, model.GenderMale},
		{"majority female", []string{"gift for my wife", "something for her"}, model.GenderFemale},
		{"tie stays unspecified", []string{"shoes for him", "a bag for her"}, model.GenderUnspecified},
		{"no signal", []string{"sneakers", "laptops"}, model.GenderUnspecified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateGender(tt.texts); got != tt.want {
				t.Errorf("AggregateGender = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuggestLimit(t *testing.T) {
	p := New(0)

	if got := p.SuggestLimit(p.Parse("sneakers under $50")); got != suggestLimitFiltered {
		t.Errorf("filtered query limit = %d, want %d", got, suggestLimitFiltered)
	}
	if got := p.SuggestLimit(p.Parse("sneakers")); got != suggestLimitDefault {
		t.Errorf("plain query limit = %d, want %d", got, suggestLimitDefault)
	}
}

func checkFloat(t *testing.T, field string, got, want *float64) {
	t.Helper()
	if (got == nil) != (want == nil) {
		t.Errorf("%s = %v, want %v", field, fmtPtr(got), fmtPtr(want))
		return
	}
	if got != nil && *got != *want {
		t.Errorf("%s = %v, want %v", field, *got, *want)
	}
}

func checkInt(t *testing.T, field string, got, want *int) {
	t.Helper()
	if (got == nil) != (want == nil) {
		t.Errorf("%s pointer mismatch", field)
		return
	}
	if got != nil && *got != *want {
		t.Errorf("%s = %d, want %d", field, *got, *want)
	}
}

func fmtPtr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
