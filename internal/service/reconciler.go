package service

import (
	"strings"

	"core/internal/model"
	"core/internal/parser"
)

// Reconciler merges the deterministic parse, the optional model proposal,
// the session context and the conversation gender hint into one final
// parameter set. Deterministic extraction always wins a conflict.
type Reconciler struct {
	parser *parser.Parser
}

// NewReconciler creates a reconciler sharing the service's parser.
func NewReconciler(p *parser.Parser) *Reconciler {
	return &Reconciler{parser: p}
}

// Reconcile never fails; missing inputs simply contribute nothing.
func (r *Reconciler) Reconcile(
	parsed *model.ParsedQuery,
	proposal *model.ToolProposal,
	sess *model.SearchContext,
	genderHint model.Gender,
) *model.ReconciledParams {
	params := &model.ReconciledParams{IsFollowUp: parsed.IsFollowUp}

	// Price, rating and sort: the deterministic values win, the model
	// only fills fields extraction left empty.
	params.Filters.MinPrice = parsed.MinPrice
	params.Filters.MaxPrice = parsed.MaxPrice
	params.Filters.MinRating = parsed.MinRating
	params.Filters.SortOrder = parsed.SortOrder
	if proposal != nil {
		if params.Filters.MinPrice == nil {
			params.Filters.MinPrice = proposal.MinPrice
		}
		if params.Filters.MaxPrice == nil {
			params.Filters.MaxPrice = proposal.MaxPrice
		}
		if params.Filters.MinRating == nil {
			params.Filters.MinRating = proposal.MinRating
		}
		if params.Filters.SortOrder == model.SortNone && proposal.SortBy != nil {
			params.Filters.SortOrder = model.SortOrder(*proposal.SortBy)
		}
	}

	// Gender: current parse, then session, then conversation majority.
	params.Filters.Gender = parsed.Gender
	if params.Filters.Gender == model.GenderUnspecified && sess != nil {
		params.Filters.Gender = sess.Gender
	}
	if params.Filters.Gender == model.GenderUnspecified {
		params.Filters.Gender = genderHint
	}

	params.Query, params.Category = r.resolveSubject(parsed, proposal, sess)
	params.Query = applyGenderPrefix(params.Query, params.Filters.Gender)

	params.Limit = r.resolveLimit(parsed, proposal)
	if proposal != nil && proposal.Offset != nil && *proposal.Offset > 0 {
		params.Offset = *proposal.Offset
	}

	return params
}

// resolveSubject picks the search text. A follow-up that names no product
// keeps searching the session's last category; an empty subject falls back
// to the model's query, then to the last category.
func (r *Reconciler) resolveSubject(
	parsed *model.ParsedQuery,
	proposal *model.ToolProposal,
	sess *model.SearchContext,
) (subject, category string) {
	subject = parsed.CleanQuery
	keyword, _, found := parser.ExtractCategory(subject)
	if found {
		category = keyword
	}

	lastCategory := ""
	if sess != nil {
		lastCategory = sess.LastCategory
	}

	if parsed.IsFollowUp && !found && lastCategory != "" {
		return lastCategory, lastCategory
	}
	if subject == "" {
		if proposal != nil && proposal.Query != nil && strings.TrimSpace(*proposal.Query) != "" {
			subject = strings.TrimSpace(*proposal.Query)
			if kw, _, ok := parser.ExtractCategory(subject); ok {
				category = kw
			}
			return subject, category
		}
		if lastCategory != "" {
			return lastCategory, lastCategory
		}
	}
	return subject, category
}

// resolveLimit: an explicit "N more" wins, then the model's limit, then
// the parser's suggestion for the filter shape.
func (r *Reconciler) resolveLimit(parsed *model.ParsedQuery, proposal *model.ToolProposal) int {
	if parsed.RequestedCount != nil {
		return *parsed.RequestedCount
	}
	if proposal != nil && proposal.Limit != nil {
		return *proposal.Limit
	}
	return r.parser.SuggestLimit(parsed)
}

// applyGenderPrefix prepends the resolved gender when the subject does
// not already carry a gendered word, so "watch" becomes "men's watch".
func applyGenderPrefix(subject string, gender model.Gender) string {
	if subject == "" || gender == model.GenderUnspecified {
		return subject
	}
	if parser.AggregateGender([]string{subject}) != model.GenderUnspecified {
		return subject
	}
	switch gender {
	case model.GenderMale:
		return "men's " + subject
	case model.GenderFemale:
		return "women's " + subject
	}
	return subject
}
