package matcher

import (
	"math"
	"strings"

	"github.com/spigell/joe-enricher/internal/job"
)

// DefaultFocalAreas are used when no research focal areas are configured.
var DefaultFocalAreas = []string{"Labor Economics", "Development Economics", "Applied Microeconomics"}

const (
	researchWeight      = 0.4
	qualificationWeight = 0.3
	positionWeight      = 0.2
	institutionWeight   = 0.1

	neutralScore = 50.0
)

var relatedKeywords = []struct {
	area     string
	keywords []string
}{
	{area: "public economics", keywords: []string{"public policy", "government", "tax", "fiscal", "welfare"}},
	{area: "development economics", keywords: []string{"development", "poverty", "inequality", "growth", "emerging markets"}},
	{area: "microeconomics", keywords: []string{"micro", "individual", "consumer", "firm", "market structure"}},
}

var skillKeywords = []string{"econometrics", "statistics", "stata", "r", "python", "data"}

// Heuristic is the keyword fit score used when the LLM is unavailable:
// 0.4 research + 0.3 qualification + 0.2 position + 0.1 institution, each
// component in [0,100], rounded to two decimals.
func Heuristic(rec *job.Record, portfolioText string, focalAreas []string) float64 {
	if rec == nil {
		return 0
	}
	if len(focalAreas) == 0 {
		focalAreas = DefaultFocalAreas
	}

	score := researchAlignment(rec.Description, rec.Field, focalAreas)*researchWeight +
		qualificationMatch(rec.Requirements, portfolioText)*qualificationWeight +
		positionMatch(rec.Level, rec.Title)*positionWeight +
		institutionMatch(rec.Institution, rec.Location)*institutionWeight
	return round2(score)
}

func researchAlignment(description, field string, focalAreas []string) float64 {
	text := strings.ToLower(description + " " + field)

	score := 0.0
	matched := 0
	for _, area := range focalAreas {
		count := strings.Count(text, strings.ToLower(area))
		if count == 0 {
			continue
		}
		matched++
		score += math.Min(30, float64(count*10))
	}
	if matched > 0 {
		score += float64(matched) / float64(len(focalAreas)) * 40
	}

	for _, related := range relatedKeywords {
		if !strings.Contains(text, related.area) {
			continue
		}
		for _, keyword := range related.keywords {
			if strings.Contains(text, keyword) {
				score += 5
				break
			}
		}
	}

	return math.Min(score, 100)
}

func qualificationMatch(requirements, portfolioText string) float64 {
	if requirements == "" || portfolioText == "" {
		return neutralScore
	}
	req := strings.ToLower(requirements)
	port := strings.ToLower(portfolioText)
	has := func(s string, needles ...string) bool {
		for _, n := range needles {
			if strings.Contains(s, n) {
				return true
			}
		}
		return false
	}

	score := neutralScore
	if has(req, "ph.d", "phd", "doctorate") && has(port, "ph.d", "phd") {
		score += 20
	}
	if has(req, "postdoc", "post-doc") && has(port, "postdoc", "hku") {
		score += 15
	}
	if has(req, "teaching") && has(port, "teaching") {
		score += 10
	}
	if has(req, "publication", "research") && has(port, "publication", "paper") {
		score += 10
	}

	skills := 0
	for _, skill := range skillKeywords {
		if strings.Contains(req, skill) && strings.Contains(port, skill) {
			skills++
		}
	}
	score += math.Min(15, float64(skills*5))

	return math.Min(score, 100)
}

func positionMatch(level, title string) float64 {
	text := strings.ToLower(level + " " + title)
	switch {
	case strings.Contains(text, "assistant") && strings.Contains(text, "professor"):
		return 90
	case strings.Contains(text, "postdoc") || strings.Contains(text, "post-doc"):
		return 85
	case strings.Contains(text, "associate") || strings.Contains(text, "full professor"):
		return 30
	case strings.Contains(text, "tenure-track") || strings.Contains(text, "tenure track"):
		return 80
	case strings.Contains(text, "non-tenure") || strings.Contains(text, "lecturer"):
		return 60
	}
	return neutralScore
}

func institutionMatch(institution, location string) float64 {
	text := strings.ToLower(institution + " " + location)
	switch {
	case strings.Contains(text, "community college") || strings.Contains(text, "teaching college"):
		return 40
	case strings.Contains(text, "university") || strings.Contains(text, "college") || strings.Contains(text, "institute"):
		return 70
	}
	return neutralScore
}
