// CLAUDE:SUMMARY Rule-based department classifier — keyword tables, filename hints, confidence + reasoning.
// Package classify assigns documents to an organizational department using
// keyword rules over the extracted text plus filename hints. It is a pure
// function of its inputs: no model, no network, no state.
package classify

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Department is a routing target for processed documents.
type Department string

const (
	Engineering Department = "ENGINEERING"
	Procurement Department = "PROCUREMENT"
	HR          Department = "HR"
	Finance     Department = "FINANCE"
	Safety      Department = "SAFETY"
	Operations  Department = "OPERATIONS"
	Legal       Department = "LEGAL"
	Regulatory  Department = "REGULATORY"

	// General is the fallback when no rule matches.
	General Department = "GENERAL"
)

// Classification is the outcome of classifying one document.
type Classification struct {
	Department Department `json:"department"`
	Confidence float64    `json:"confidence"` // 0..1, share of matches won by the department
	Reasoning  []string   `json:"reasoning"`  // one line per matched rule
}

// rule binds a department to its evidence.
type rule struct {
	dept       Department
	keywords   []string // matched case-insensitively in text
	extensions []string // filename hints, matched on the extension
}

// rules is evaluated in order; order only affects tie-breaking between
// departments with equal scores.
var rules = []rule{
	{Engineering,
		[]string{"maintenance", "technical", "drawing", "track", "signal", "rolling stock", "catenary", "inspection", "specification"},
		[]string{".dxf", ".dwg"}},
	{Procurement,
		[]string{"purchase order", "vendor", "invoice", "quotation", "tender", "supplier", "payment terms", "delivery"},
		nil},
	{HR,
		[]string{"employee", "recruitment", "training", "leave", "payroll", "appraisal", "policy"},
		nil},
	{Finance,
		[]string{"budget", "financial", "audit", "expenditure", "revenue", "balance sheet", "fiscal"},
		nil},
	{Safety,
		[]string{"incident", "accident", "hazard", "safety", "injury", "emergency", "compliance audit"},
		nil},
	{Operations,
		[]string{"schedule", "timetable", "service report", "performance", "passenger", "station operations"},
		nil},
	{Legal,
		[]string{"contract", "agreement", "legal opinion", "litigation", "arbitration", "clause"},
		nil},
	{Regulatory,
		[]string{"directive", "regulation", "ministry", "commissioner", "statutory", "gazette"},
		nil},
}

// Classify scores text and filename against every department's rules and
// returns the best match. Confidence is the winning department's share of
// all matched rules, so a document matching only one department scores 1.0.
func Classify(text, filename string) Classification {
	lower := strings.ToLower(text)
	ext := strings.ToLower(filepath.Ext(filename))

	type scored struct {
		dept    Department
		score   int
		reasons []string
	}
	var (
		results []scored
		total   int
	)

	for _, r := range rules {
		var s scored
		s.dept = r.dept
		for _, kw := range r.keywords {
			if n := strings.Count(lower, kw); n > 0 {
				s.score += n
				s.reasons = append(s.reasons, fmt.Sprintf("keyword %q matched %d time(s)", kw, n))
			}
		}
		for _, e := range r.extensions {
			if ext == e {
				s.score += 3 // a CAD extension is strong evidence on its own
				s.reasons = append(s.reasons, fmt.Sprintf("file extension %s", e))
			}
		}
		if s.score > 0 {
			results = append(results, s)
			total += s.score
		}
	}

	if len(results) == 0 {
		return Classification{Department: General, Reasoning: []string{"no classification rules matched"}}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	best := results[0]
	return Classification{
		Department: best.dept,
		Confidence: float64(best.score) / float64(total),
		Reasoning:  best.reasons,
	}
}

// Departments lists every routable department, fallback excluded.
func Departments() []Department {
	out := make([]Department, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.dept)
	}
	return out
}
