package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"qdrantloader/internal/model"
	"qdrantloader/internal/search"
	"qdrantloader/internal/search/crossdoc"
	"qdrantloader/internal/search/facets"
	"qdrantloader/internal/search/intent"
	"qdrantloader/internal/search/topicchain"
)

var paramsValidator = validator.New()

// validateParams runs struct-tag validation over a decoded params value,
// returning a CodeInvalidParams *Error naming the failing field (spec §6).
func validateParams(p any) error {
	if err := paramsValidator.Struct(p); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			return NewError(CodeInvalidParams, "invalid params", fieldErrs[0].Field()+" "+fieldErrs[0].Tag())
		}
		return NewError(CodeInvalidParams, "invalid params", err.Error())
	}
	return nil
}

// Server wires every registered capability to its collaborator engines.
// One Server instance backs both the stdio and HTTP/SSE transports.
type Server struct {
	Engine     *search.Engine
	Intent     *intent.Classifier
	TopicChain *topicchain.Engine
	CrossDoc   *crossdoc.Engine
	Version    string
}

// RegisterTools attaches every spec §4.12 method to d.
func (s *Server) RegisterTools(d *Dispatcher) {
	d.Register(MethodInitialize, s.handleInitialize)
	d.Register(MethodPing, s.handlePing)
	d.Register(MethodListTools, s.handleListTools)
	d.Register("search", s.handleSearch)
	d.Register("search_with_facets", s.handleSearchWithFacets)
	d.Register("get_facet_suggestions", s.handleFacetSuggestions)
	d.Register("generate_topic_chain", s.handleGenerateTopicChain)
	d.Register("execute_topic_chain", s.handleExecuteTopicChain)
	d.Register("search_with_topic_chain", s.handleSearchWithTopicChain)
	d.Register("analyze_document_relationships", s.handleAnalyzeRelationships)
	d.Register("find_similar_documents", s.handleFindSimilar)
	d.Register("detect_document_conflicts", s.handleDetectConflicts)
	d.Register("find_complementary_content", s.handleFindComplementary)
	d.Register("cluster_documents", s.handleClusterDocuments)
}

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (any, error) {
	return map[string]any{"protocol": "mcp", "version": s.Version}, nil
}

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (any, error) {
	return map[string]any{"status": "ok"}, nil
}

func (s *Server) handleListTools(ctx context.Context, params json.RawMessage) (any, error) {
	return map[string]any{"tools": Tools()}, nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return NewError(CodeInvalidParams, "invalid params", "missing params")
	}
	if err := json.Unmarshal(params, out); err != nil {
		return NewError(CodeInvalidParams, "invalid params", err.Error())
	}
	return validateParams(out)
}

// searchParams mirrors search.Query's public fields (spec §4.7 operation).
// Limit is a pointer so a client that omits "limit" (use the default) is
// distinguishable from one that sends "limit": 0 (spec §8: return an empty
// result list, not an error).
type searchParams struct {
	Query             string   `json:"query" validate:"required"`
	Limit             *int     `json:"limit"`
	SourceTypes       []string `json:"source_types"`
	ProjectIDs        []string `json:"project_ids"`
	Aggressive        bool     `json:"aggressive"`
	BehavioralHistory []string `json:"behavioral_history"`
}

func (s *Server) runSearch(ctx context.Context, p searchParams) ([]model.SearchResult, error) {
	engine := s.Engine
	limit := p.Limit
	if s.Intent != nil {
		classification := s.Intent.Classify(p.Query, nil, toIntents(p.BehavioralHistory))
		strategy := intent.StrategyFor(classification.Primary)
		engine = s.Engine.WithWeights(search.Weights{
			VectorWeight:   strategy.VectorWeight,
			KeywordWeight:  strategy.KeywordWeight,
			MetadataWeight: 1 - strategy.VectorWeight - strategy.KeywordWeight,
			MinScore:       strategy.MinScore,
		})
		if limit == nil {
			limit = intPtr(strategy.MaxResults)
		}
	}
	return engine.Search(ctx, search.Query{
		Text: p.Query, Limit: limit, SourceTypes: p.SourceTypes, ProjectIDs: p.ProjectIDs, Aggressive: p.Aggressive,
	})
}

// intPtr is a convenience for building search.Query's pointer-typed Limit
// from a plain int literal or variable.
func intPtr(n int) *int { return &n }

func toIntents(labels []string) []intent.Intent {
	out := make([]intent.Intent, len(labels))
	for i, l := range labels {
		out[i] = intent.Intent(l)
	}
	return out
}

func (s *Server) handleSearch(ctx context.Context, params json.RawMessage) (any, error) {
	var p searchParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	results, err := s.runSearch(ctx, p)
	if err != nil {
		return nil, NewError(CodeInternalError, "Internal error", err.Error())
	}
	return map[string]any{"results": results}, nil
}

func (s *Server) handleSearchWithFacets(ctx context.Context, params json.RawMessage) (any, error) {
	var p searchParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	results, err := s.runSearch(ctx, p)
	if err != nil {
		return nil, NewError(CodeInternalError, "Internal error", err.Error())
	}
	output := facets.GenerateFacets(results, facets.DefaultTopN)
	return map[string]any{
		"results":            results,
		"facets":             output.Facets,
		"suggestions":        output.Suggestions,
		"total_results":      output.TotalResults,
		"filtered_count":     output.FilteredCount,
		"generation_time_ms": output.GenerationTimeMs,
	}, nil
}

type facetSuggestionsParams struct {
	Results []model.SearchResult `json:"results" validate:"required"`
	TopN    int                  `json:"top_n"`
}

func (s *Server) handleFacetSuggestions(ctx context.Context, params json.RawMessage) (any, error) {
	var p facetSuggestionsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	output := facets.GenerateFacets(p.Results, p.TopN)
	return map[string]any{"facets": output.Facets, "suggestions": output.Suggestions}, nil
}

type generateTopicChainParams struct {
	Query    string `json:"query" validate:"required"`
	Strategy string `json:"strategy"`
	MaxLinks int    `json:"max_links"`
}

func (s *Server) handleGenerateTopicChain(ctx context.Context, params json.RawMessage) (any, error) {
	var p generateTopicChainParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	seed, err := s.Engine.Search(ctx, search.Query{Text: p.Query, Limit: intPtr(20)})
	if err != nil {
		return nil, NewError(CodeInternalError, "Internal error", err.Error())
	}
	strategy := topicchain.Strategy(p.Strategy)
	if strategy == "" {
		strategy = topicchain.BreadthFirst
	}
	chain := s.TopicChain.GenerateSearchChain(p.Query, seed, strategy, p.MaxLinks)
	return map[string]any{"chain": chain}, nil
}

type executeTopicChainParams struct {
	Chain           model.TopicSearchChain `json:"chain" validate:"required"`
	ResultsPerLink  int                    `json:"results_per_link"`
	SourceTypes     []string               `json:"source_types"`
	ProjectIDs      []string               `json:"project_ids"`
}

func (s *Server) handleExecuteTopicChain(ctx context.Context, params json.RawMessage) (any, error) {
	var p executeTopicChainParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	var limit *int
	if p.ResultsPerLink > 0 {
		limit = intPtr(p.ResultsPerLink)
	}
	searchFn := func(ctx context.Context, query string) ([]model.SearchResult, error) {
		return s.Engine.Search(ctx, search.Query{Text: query, Limit: limit, SourceTypes: p.SourceTypes, ProjectIDs: p.ProjectIDs})
	}
	results := topicchain.ExecuteChain(ctx, p.Chain, searchFn)
	return map[string]any{"results_by_query": results}, nil
}

func (s *Server) handleSearchWithTopicChain(ctx context.Context, params json.RawMessage) (any, error) {
	var p generateTopicChainParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	seed, err := s.Engine.Search(ctx, search.Query{Text: p.Query, Limit: intPtr(20)})
	if err != nil {
		return nil, NewError(CodeInternalError, "Internal error", err.Error())
	}
	strategy := topicchain.Strategy(p.Strategy)
	if strategy == "" {
		strategy = topicchain.BreadthFirst
	}
	chain := s.TopicChain.GenerateSearchChain(p.Query, seed, strategy, p.MaxLinks)
	searchFn := func(ctx context.Context, query string) ([]model.SearchResult, error) {
		return s.Engine.Search(ctx, search.Query{Text: query, Limit: intPtr(5)})
	}
	results := topicchain.ExecuteChain(ctx, chain, searchFn)
	return map[string]any{
		"seed_results":      seed,
		"chain":             chain,
		"results_by_query":  results,
		"coherence":         topicchain.ChainCoherence(chain),
		"discovery_potential": topicchain.DiscoveryPotential(chain),
	}, nil
}

type documentsParams struct {
	Documents []model.SearchResult `json:"documents" validate:"required"`
}

func (s *Server) handleAnalyzeRelationships(ctx context.Context, params json.RawMessage) (any, error) {
	var p documentsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.CrossDoc.AnalyzeRelationships(p.Documents), nil
}

type findSimilarParams struct {
	Target     model.SearchResult   `json:"target" validate:"required"`
	Candidates []model.SearchResult `json:"candidates" validate:"required"`
	Metrics    []string             `json:"metrics"`
	Max        int                  `json:"max"`
}

func (s *Server) handleFindSimilar(ctx context.Context, params json.RawMessage) (any, error) {
	var p findSimilarParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return map[string]any{"similarities": s.CrossDoc.FindSimilar(ctx, p.Target, p.Candidates, p.Metrics, p.Max)}, nil
}

type detectConflictsParams struct {
	Documents       []model.SearchResult `json:"documents" validate:"required"`
	UseLLM          bool                 `json:"use_llm"`
	MaxLLMPairs     int                  `json:"max_llm_pairs"`
	TimeoutSec      int                  `json:"timeout_seconds"`
	MaxPairsTotal   int                  `json:"max_pairs_total"`
	TextWindowChars int                  `json:"text_window_chars"`
}

func (s *Server) handleDetectConflicts(ctx context.Context, params json.RawMessage) (any, error) {
	var p detectConflictsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opts := crossdoc.ConflictOptions{
		UseLLM: p.UseLLM, MaxLLMPairs: p.MaxLLMPairs, MaxPairsTotal: p.MaxPairsTotal, TextWindowChars: p.TextWindowChars,
	}
	if p.TimeoutSec > 0 {
		opts.Timeout = time.Duration(p.TimeoutSec) * time.Second
	}
	return s.CrossDoc.DetectConflicts(ctx, p.Documents, opts), nil
}

type findComplementaryParams struct {
	Target     model.SearchResult   `json:"target" validate:"required"`
	Candidates []model.SearchResult `json:"candidates" validate:"required"`
	Max        int                  `json:"max"`
}

func (s *Server) handleFindComplementary(ctx context.Context, params json.RawMessage) (any, error) {
	var p findComplementaryParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return map[string]any{"complementary": s.CrossDoc.FindComplementary(p.Target, p.Candidates, p.Max)}, nil
}

type clusterParams struct {
	Documents      []model.SearchResult `json:"documents" validate:"required"`
	Strategy       string               `json:"strategy"`
	MaxClusters    int                  `json:"max_clusters"`
	MinClusterSize int                  `json:"min_cluster_size"`
}

func (s *Server) handleClusterDocuments(ctx context.Context, params json.RawMessage) (any, error) {
	var p clusterParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.MinClusterSize > len(p.Documents) {
		return map[string]any{"clusters": []model.DocumentCluster{}, "reason": "min_cluster_size exceeds the number of documents"}, nil
	}
	clusters, usedStrategy := s.CrossDoc.Cluster(p.Documents, crossdoc.ClusterStrategy(p.Strategy), p.MaxClusters, p.MinClusterSize)
	return map[string]any{"clusters": clusters, "strategy": usedStrategy}, nil
}
