package classifier

import (
	"context"
	"log/slog"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"

	"guardian-chat/domain"
)

// screenRule groups keywords that signal one conversational pattern.
// Levels and scores follow the demo screening shipped with the product:
// the highest matched rule wins.
type screenRule struct {
	Category string
	Level    domain.RiskLevel
	Score    int
	Note     string
	Terms    []string
}

var screenRules = []screenRule{
	{
		Category: "personal probing",
		Level:    domain.RiskMedium,
		Score:    45,
		Note:     "probing for age or personal details",
		Terms: []string{
			"age", "how old", "young", "older", "what school",
			"where do you live", "phone number", "address", "parents home",
		},
	},
	{
		Category: "platform move",
		Level:    domain.RiskHigh,
		Score:    75,
		Note:     "attempt to move the conversation to another platform",
		Terms: []string{
			"discord", "snapchat", "instagram", "whatsapp", "telegram",
		},
	},
	{
		Category: "secrecy and imagery",
		Level:    domain.RiskHigh,
		Score:    90,
		Note:     "requests for secrecy or images",
		Terms: []string{
			"secret", "dont tell", "between us", "keep quiet",
			"picture", "photo", "send pic", "selfie",
		},
	},
	{
		Category: "grooming language",
		Level:    domain.RiskHigh,
		Score:    85,
		Note:     "grooming-typical compliments or trust building",
		Terms: []string{
			"sexy", "hot", "cute", "so pretty", "beautiful",
			"mature for your age", "trust me", "special friend",
		},
	},
}

// Screener is the in-process keyword classifier used when no backend URL is
// configured. Matching runs on a normalized view of the text (lowercased,
// leet speak folded, punctuation and spacing stripped) so trivial
// obfuscation does not defeat it.
type Screener struct {
	matcher *goahocorasick.Machine
	byTerm  map[string]int // normalized term -> rule index
	log     *slog.Logger
}

func NewScreener(log *slog.Logger) (*Screener, error) {
	byTerm := make(map[string]int)
	var patterns [][]rune
	for i, rule := range screenRules {
		for _, term := range rule.Terms {
			normalized := normalizeRunes([]rune(term))
			key := string(normalized)
			if prev, ok := byTerm[key]; ok && screenRules[prev].Score >= rule.Score {
				continue
			}
			byTerm[key] = i
			patterns = append(patterns, normalized)
		}
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Screener{matcher: m, byTerm: byTerm, log: log}, nil
}

func (s *Screener) Classify(_ context.Context, text string, _ []domain.Message, authorID string) domain.RiskAssessment {
	info := whatlanggo.Detect(text)
	s.log.Debug("Keyword screening",
		"author", authorID,
		"lang", info.Lang.Iso6391(),
		"length", len(text))

	matched := s.matchRules(text)
	if len(matched) == 0 {
		return domain.RiskAssessment{
			Level:        domain.RiskLow,
			Score:        0,
			Explanations: []string{"keyword screening: no risky patterns detected"},
			Action:       domain.ActionAllow,
			Trend:        domain.TrendStable,
		}
	}

	top := matched[0]
	for _, rule := range matched[1:] {
		if rule.Score > top.Score {
			top = rule
		}
	}

	action := domain.ActionAllow
	if top.Level == domain.RiskHigh {
		action = domain.ActionFlag
	}

	return domain.RiskAssessment{
		Level: top.Level,
		Score: top.Score,
		Explanations: lo.Map(matched, func(rule screenRule, _ int) string {
			return "keyword screening: " + rule.Note
		}),
		Patterns: lo.Map(matched, func(rule screenRule, _ int) domain.Pattern {
			return domain.Pattern{Name: rule.Category, Severity: string(rule.Level)}
		}),
		Action: action,
		Trend:  domain.TrendStable,
	}
}

// matchRules returns the distinct rules whose terms occur in the text,
// in rule declaration order.
func (s *Screener) matchRules(text string) []screenRule {
	normalized := normalizeRunes([]rune(text))
	if len(normalized) == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	var indexes []int
	for _, term := range s.matcher.MultiPatternSearch(normalized, false) {
		idx, ok := s.byTerm[string(term.Word)]
		if !ok {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indexes = append(indexes, idx)
	}

	rules := make([]screenRule, 0, len(indexes))
	for _, idx := range indexes {
		rules = append(rules, screenRules[idx])
	}
	return rules
}

// normalizeRunes lowercases, folds leet speak, and drops punctuation,
// spacing, and symbols.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
