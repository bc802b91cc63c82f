// Package intent classifies a query's search intent and derives the
// adaptive retrieval strategy for it (spec §4.9). Grounded on
// original_source's intent-classification module of the same purpose;
// scoring is hand-rolled heuristic matching (no pack NLP dependency exists,
// same documented exception as internal/nlpanalyzer) while the result cache
// uses hashicorp/golang-lru/v2 (teacher dep) for the bounded, concurrency-safe
// process-wide cache spec §9 requires.
package intent

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"qdrantloader/internal/nlpanalyzer"
)

// Intent is a coarse label predicting the user's goal.
type Intent string

const (
	TechnicalLookup  Intent = "technical_lookup"
	BusinessContext  Intent = "business_context"
	VendorEvaluation Intent = "vendor_evaluation"
	Procedural       Intent = "procedural"
	Informational    Intent = "informational"
	Troubleshooting  Intent = "troubleshooting"
	Exploratory      Intent = "exploratory"
	General          Intent = "general"
)

// confidenceFloor is the minimum top-score confidence before falling back
// to General (spec §4.9: "If the top confidence is < 0.3, fall back").
const confidenceFloor = 0.3

// secondaryThresholdRatio bounds which secondary intents are retained
// (spec §4.9: "above 0.3 × primary_score").
const secondaryThresholdRatio = 0.3

// profile is one intent category's matching signal.
type profile struct {
	intent       Intent
	keywords     []string
	questionWord []string
	posHints     []string
	entityTypes  []string
	indicators   []string // linguistic indicators: imperative verbs, etc.
}

var profiles = []profile{
	{
		intent:     TechnicalLookup,
		keywords:   []string{"api", "function", "method", "error", "code", "syntax", "parameter", "sdk", "library", "endpoint"},
		posHints:   []string{"NOUN", "VERB"},
		indicators: []string{"how to", "implement", "config"},
	},
	{
		intent:       BusinessContext,
		keywords:     []string{"roadmap", "strategy", "budget", "revenue", "stakeholder", "policy", "compliance"},
		entityTypes:  []string{"ORG"},
		questionWord: []string{"why"},
	},
	{
		intent:     VendorEvaluation,
		keywords:   []string{"vendor", "compare", "pricing", "license", "contract", "alternative", "versus"},
		indicators: []string{"vs", "compared to"},
	},
	{
		intent:       Procedural,
		keywords:     []string{"steps", "process", "procedure", "workflow", "setup", "install", "configure", "deploy"},
		questionWord: []string{"how"},
		indicators:   []string{"how do i", "step by step"},
	},
	{
		intent:       Informational,
		keywords:     []string{"what", "definition", "overview", "explain", "describe"},
		questionWord: []string{"what", "who", "when", "where"},
	},
	{
		intent:     Troubleshooting,
		keywords:   []string{"error", "bug", "fail", "broken", "issue", "crash", "exception", "not working"},
		indicators: []string{"doesn't work", "won't start", "fails with"},
	},
	{
		intent:       Exploratory,
		keywords:     []string{"explore", "overview", "options", "ideas", "possibilities"},
		questionWord: []string{"what if"},
	},
}

// transitions is the behavioral-weighting table: intents that commonly
// follow the last observed intent get a +20% boost (spec §4.9).
var transitions = map[Intent][]Intent{
	TechnicalLookup: {Troubleshooting, Procedural},
	Troubleshooting: {TechnicalLookup, Procedural},
	Procedural:      {TechnicalLookup, Troubleshooting},
	Informational:   {Exploratory, BusinessContext},
	Exploratory:     {Informational, BusinessContext},
	BusinessContext: {VendorEvaluation, Informational},
}

// SessionContext mirrors internal/search.SessionContext without importing
// it, avoiding a dependency cycle between search and search/intent.
type SessionContext struct {
	Domain   string
	UserRole string
	Urgency  string
}

// Classification is one Classify call's result.
type Classification struct {
	Primary    Intent
	Confidence float64
	Secondary  []ScoredIntent
}

// ScoredIntent pairs an intent with its confidence.
type ScoredIntent struct {
	Intent     Intent
	Confidence float64
}

// Strategy is the adaptive retrieval configuration an Intent maps to
// (spec §4.9).
type Strategy struct {
	VectorWeight         float64
	KeywordWeight        float64
	MinScore             float64
	MaxResults           int
	ExpansionAggressive  float64 // 0..1
	UseKnowledgeGraph    bool
}

var strategies = map[Intent]Strategy{
	TechnicalLookup:  {VectorWeight: 0.7, KeywordWeight: 0.25, MinScore: 0.35, MaxResults: 8, ExpansionAggressive: 0.3, UseKnowledgeGraph: true},
	BusinessContext:  {VectorWeight: 0.5, KeywordWeight: 0.4, MinScore: 0.3, MaxResults: 10, ExpansionAggressive: 0.5, UseKnowledgeGraph: true},
	VendorEvaluation: {VectorWeight: 0.45, KeywordWeight: 0.45, MinScore: 0.3, MaxResults: 10, ExpansionAggressive: 0.6, UseKnowledgeGraph: false},
	Procedural:       {VectorWeight: 0.55, KeywordWeight: 0.35, MinScore: 0.35, MaxResults: 6, ExpansionAggressive: 0.2, UseKnowledgeGraph: false},
	Informational:    {VectorWeight: 0.6, KeywordWeight: 0.3, MinScore: 0.3, MaxResults: 5, ExpansionAggressive: 0.4, UseKnowledgeGraph: false},
	Troubleshooting:  {VectorWeight: 0.65, KeywordWeight: 0.3, MinScore: 0.35, MaxResults: 8, ExpansionAggressive: 0.3, UseKnowledgeGraph: true},
	Exploratory:      {VectorWeight: 0.5, KeywordWeight: 0.2, MinScore: 0.25, MaxResults: 12, ExpansionAggressive: 0.8, UseKnowledgeGraph: true},
	General:          {VectorWeight: 0.6, KeywordWeight: 0.3, MinScore: 0.3, MaxResults: 5, ExpansionAggressive: 0.2, UseKnowledgeGraph: false},
}

// StrategyFor returns the adaptive strategy an Intent maps to.
func StrategyFor(i Intent) Strategy {
	if s, ok := strategies[i]; ok {
		return s
	}
	return strategies[General]
}

// Classifier scores a query against every intent profile and caches results
// keyed by (query, session context, behavioral history).
type Classifier struct {
	analyzer nlpanalyzer.Analyzer
	cache    *lru.Cache[string, Classification]
	mu       sync.Mutex
}

// New builds a Classifier with a bounded LRU cache (spec §9: "bounded to
// avoid unbounded growth").
func New(analyzer nlpanalyzer.Analyzer, cacheSize int) *Classifier {
	if cacheSize <= 0 {
		cacheSize = 500
	}
	cache, _ := lru.New[string, Classification](cacheSize)
	return &Classifier{analyzer: analyzer, cache: cache}
}

// Classify runs the weighted scoring pipeline (spec §4.9): keyword overlap
// 40%, POS-sequence 25%, entity-type 20%, question-word 10%, linguistic
// indicator 5%, then behavioral and session boosts, then normalization.
func (c *Classifier) Classify(query string, session *SessionContext, behavioralHistory []Intent) Classification {
	key := cacheKey(query, session, behavioralHistory)

	c.mu.Lock()
	if cached, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	analysis := c.analyzer.AnalyzeText(query)
	lowerQuery := strings.ToLower(query)

	var lastIntent Intent
	if len(behavioralHistory) > 0 {
		lastIntent = behavioralHistory[len(behavioralHistory)-1]
	}

	scored := make([]ScoredIntent, 0, len(profiles))
	for _, p := range profiles {
		score := scoreProfile(p, lowerQuery, analysis)
		score = applyBehavioralBoost(score, p.intent, lastIntent)
		score = applySessionBoost(score, p.intent, session)
		scored = append(scored, ScoredIntent{Intent: p.intent, Confidence: score})
	}

	normalizeScores(scored)

	best := ScoredIntent{Intent: General, Confidence: 0}
	for _, s := range scored {
		if s.Confidence > best.Confidence {
			best = s
		}
	}

	result := Classification{Primary: General, Confidence: 0}
	if best.Confidence >= confidenceFloor {
		result.Primary = best.Intent
		result.Confidence = best.Confidence
		threshold := secondaryThresholdRatio * best.Confidence
		for _, s := range scored {
			if s.Intent == best.Intent {
				continue
			}
			if s.Confidence > threshold && s.Confidence > 0 {
				result.Secondary = append(result.Secondary, s)
			}
		}
		if len(result.Secondary) > 3 {
			result.Secondary = result.Secondary[:3]
		}
	}

	c.mu.Lock()
	c.cache.Add(key, result)
	c.mu.Unlock()

	return result
}

func scoreProfile(p profile, lowerQuery string, analysis nlpanalyzer.Analysis) float64 {
	var keywordHits int
	for _, kw := range p.keywords {
		if strings.Contains(lowerQuery, kw) {
			keywordHits++
		}
	}
	keywordScore := ratio(keywordHits, len(p.keywords))

	var posHits int
	for _, hint := range p.posHints {
		for _, tag := range analysis.POSTags {
			if tag == hint {
				posHits++
				break
			}
		}
	}
	posScore := ratio(posHits, max(1, len(p.posHints)))

	var entityHits int
	for _, wantType := range p.entityTypes {
		for _, e := range analysis.Entities {
			if e.Type == wantType {
				entityHits++
				break
			}
		}
	}
	entityScore := ratio(entityHits, max(1, len(p.entityTypes)))

	var questionHit int
	for _, qw := range p.questionWord {
		if strings.Contains(lowerQuery, qw) {
			questionHit = 1
			break
		}
	}
	questionScore := float64(questionHit)

	var indicatorHit int
	for _, ind := range p.indicators {
		if strings.Contains(lowerQuery, ind) {
			indicatorHit = 1
			break
		}
	}
	indicatorScore := float64(indicatorHit)

	return 0.40*keywordScore + 0.25*posScore + 0.20*entityScore + 0.10*questionScore + 0.05*indicatorScore
}

func ratio(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// applyBehavioralBoost adds +20% to intents the transition table says
// commonly follow lastIntent (spec §4.9).
func applyBehavioralBoost(score float64, candidate, lastIntent Intent) float64 {
	if lastIntent == "" {
		return score
	}
	for _, next := range transitions[lastIntent] {
		if next == candidate {
			return score * 1.2
		}
	}
	return score
}

// applySessionBoost adds +10-40% based on domain/role/urgency matches
// (spec §4.9).
func applySessionBoost(score float64, candidate Intent, session *SessionContext) float64 {
	if session == nil {
		return score
	}
	boost := 1.0
	if session.Urgency == "high" && candidate == Troubleshooting {
		boost += 0.4
	}
	if session.UserRole == "developer" && candidate == TechnicalLookup {
		boost += 0.2
	}
	if session.UserRole == "executive" && candidate == BusinessContext {
		boost += 0.3
	}
	if session.Domain == "procurement" && candidate == VendorEvaluation {
		boost += 0.3
	}
	if boost > 1.0 {
		return score * boost
	}
	return score * 1.1
}

// normalizeScores clamps boosted scores into [0,1]. The weighted mix already
// lies in [0,1], so confidenceFloor compares against absolute confidence.
func normalizeScores(scored []ScoredIntent) {
	for i := range scored {
		if scored[i].Confidence > 1 {
			scored[i].Confidence = 1
		}
	}
}

func cacheKey(query string, session *SessionContext, history []Intent) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(strings.TrimSpace(query)))
	if session != nil {
		fmt.Fprintf(&sb, "|%s|%s|%s", session.Domain, session.UserRole, session.Urgency)
	}
	for _, h := range history {
		sb.WriteString("|")
		sb.WriteString(string(h))
	}
	return sb.String()
}
