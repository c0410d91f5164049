package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"finboard/internal/analytics"
	"finboard/internal/core"

	"github.com/shopspring/decimal"
)

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	PredictedCategory core.Category `json:"predicted_category"`
	Confidence        float64       `json:"confidence"`
}

type compareResponse struct {
	Message string `json:"message"`
}

// categoryKeywords drives the title-based category predictor.
var categoryKeywords = map[core.Category][]string{
	core.Food:          {"lunch", "dinner", "breakfast", "grocery", "groceries", "restaurant", "coffee", "pizza", "food", "cafe", "snack", "supermarket"},
	core.Transport:     {"bus", "taxi", "uber", "train", "fuel", "gas", "petrol", "parking", "metro", "flight", "ticket", "toll"},
	core.Shopping:      {"shoes", "clothes", "amazon", "mall", "shirt", "gift", "electronics", "book", "store"},
	core.Bills:         {"rent", "electricity", "water", "internet", "phone", "insurance", "bill", "utility", "subscription", "mortgage"},
	core.Entertainment: {"movie", "cinema", "netflix", "concert", "game", "spotify", "theater", "party", "bar"},
}

// Predict returns the category whose keywords best match text and a
// confidence in [0, 1]. Text without any known keyword predicts Other.
func Predict(text string) (core.Category, float64) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return core.Other, 0
	}

	best, bestHits, totalHits := core.Other, 0, 0
	// Iterate in display order so ties resolve deterministically.
	for _, c := range core.Categories {
		hits := 0
		for _, w := range words {
			for _, kw := range categoryKeywords[c] {
				if w == kw {
					hits++
				}
			}
		}
		totalHits += hits
		if hits > bestHits {
			best, bestHits = c, hits
		}
	}
	if bestHits == 0 {
		return core.Other, 0.3
	}
	// Dominance of the winning category, scaled into [0.5, 0.95].
	share := float64(bestHits) / float64(totalHits)
	return best, 0.5 + 0.45*share
}

// CompareMonths describes how the latest month's spending moved against the
// month before it.
func CompareMonths(expenses []core.Expense) string {
	months := analytics.ByMonth(expenses)
	switch len(months) {
	case 0:
		return "No spending recorded yet."
	case 1:
		m := months[0]
		return fmt.Sprintf("You spent %s in %s. Add another month of expenses to compare.", m.Amount.Format(), m.YearMonth)
	}

	cur, prev := months[len(months)-1], months[len(months)-2]
	diff := cur.Amount.Sub(prev.Amount)
	if prev.Amount.IsZero() {
		return fmt.Sprintf("You spent %s in %s, up from nothing in %s.", cur.Amount.Format(), cur.YearMonth, prev.YearMonth)
	}

	pct := diff.Abs().Div(prev.Amount.Decimal).Mul(decimal.NewFromInt(100)).Round(1)
	switch diff.Sign() {
	case 1:
		return fmt.Sprintf("You spent %s in %s, up %s%% from %s in %s.", cur.Amount.Format(), cur.YearMonth, pct.StringFixed(1), prev.Amount.Format(), prev.YearMonth)
	case -1:
		return fmt.Sprintf("You spent %s in %s, down %s%% from %s in %s.", cur.Amount.Format(), cur.YearMonth, pct.StringFixed(1), prev.Amount.Format(), prev.YearMonth)
	default:
		return fmt.Sprintf("You spent %s in %s, the same as in %s.", cur.Amount.Format(), cur.YearMonth, prev.YearMonth)
	}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusUnprocessableEntity, "text is required")
		return
	}
	c, conf := Predict(req.Text)
	writeJSON(w, http.StatusOK, predictResponse{PredictedCategory: c, Confidence: conf})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.repo.List(r.Context())
	if err != nil {
		s.internalError(w, r, "compare spending", err)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{Message: CompareMonths(expenses)})
}
