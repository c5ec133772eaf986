package enrich

import "strings"

// LevelSeparator joins normalized levels into the stored level value.
const LevelSeparator = " / "

// Canonical level labels in display order.
const (
	LevelPreDoc    = "Pre-doc"
	LevelPostdoc   = "Postdoc"
	LevelAssistant = "Assistant"
	LevelAssociate = "Associate"
	LevelFull      = "Full"
	LevelLecturer  = "Lecturer / Instructor"
	LevelResearch  = "Research"
	LevelOther     = "Other"
)

var (
	lecturerKeywords = []string{"lecturer", "instructor", "teaching professor", "professor of practice"}
	researchKeywords = []string{"research fellow", "research scientist", "research associate"}
	preDocPhrases    = []string{"predoc", "pre-doc", "pre doc", "pre doctoral", "predoctoral"}
	postdocPhrases   = []string{"postdoc", "post-doc", "postdoctoral"}
)

// NormalizeLevels maps free-form level labels to the canonical ordered set.
// The title is the primary signal; raw labels and description tokens are
// secondary. Research is dropped when the job is a pre-doc or postdoc, and an
// empty detection yields Other.
func NormalizeLevels(raw, title, description string) []string {
	tokens := append(tokenizeLevels(raw), tokenizeLevels(description)...)
	title = strings.ToLower(title)

	preDoc := detectPreDoc(tokens, title)
	postdoc := detectPostdoc(tokens, title)
	research := detectAny(tokens, title, researchKeywords)

	detected := map[string]bool{
		LevelPreDoc:    preDoc,
		LevelPostdoc:   postdoc,
		LevelAssistant: detectRank(tokens, title, "assistant"),
		LevelAssociate: detectRank(tokens, title, "associate"),
		LevelFull:      detectFull(tokens, title),
		LevelLecturer:  detectAny(tokens, title, lecturerKeywords),
		LevelResearch:  research && !preDoc && !postdoc,
	}

	levels := make([]string, 0, 2)
	for _, level := range []string{LevelPreDoc, LevelPostdoc, LevelAssistant, LevelAssociate, LevelFull, LevelLecturer, LevelResearch} {
		if detected[level] {
			levels = append(levels, level)
		}
	}
	if len(levels) == 0 {
		return []string{LevelOther}
	}
	return levels
}

// JoinLevels is NormalizeLevels rendered as the stored string.
func JoinLevels(raw, title, description string) string {
	return strings.Join(NormalizeLevels(raw, title, description), LevelSeparator)
}

func tokenizeLevels(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == '/' || r == ';' || r == ',' || r == '|'
	})
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func detectPreDoc(tokens []string, title string) bool {
	if containsAny(title, preDocPhrases) {
		return true
	}
	for _, token := range tokens {
		if strings.Contains(token, "predoc") || (strings.Contains(token, "pre") && strings.Contains(token, "doc")) {
			return true
		}
	}
	return false
}

func detectPostdoc(tokens []string, title string) bool {
	return detectAny(tokens, title, postdocPhrases)
}

func detectAny(tokens []string, title string, keywords []string) bool {
	if containsAny(title, keywords) {
		return true
	}
	for _, token := range tokens {
		if containsAny(token, keywords) {
			return true
		}
	}
	return false
}

// detectRank handles assistant and associate professor ranks.
func detectRank(tokens []string, title, rank string) bool {
	if strings.Contains(title, rank) && strings.Contains(title, "prof") {
		return true
	}
	for _, token := range tokens {
		if strings.Contains(token, rank+" professor") {
			return true
		}
		if token == rank && strings.Contains(title, "professor") {
			return true
		}
	}
	return false
}

func detectFull(tokens []string, title string) bool {
	if strings.Contains(title, "full") && strings.Contains(title, "prof") {
		return true
	}
	if strings.Contains(title, "professor") && (strings.Contains(title, "chair") || strings.Contains(title, "distinguished")) {
		return true
	}
	for _, token := range tokens {
		if strings.Contains(token, "full professor") {
			return true
		}
		if token == "full" && strings.Contains(title, "professor") {
			return true
		}
	}
	return false
}
