package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Retroinn/MotoCrew/caching"
	"github.com/Retroinn/MotoCrew/config"
	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/util/common"

	json "github.com/goccy/go-json"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// POI is one rider-relevant place returned by discovery.
type POI struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// RideRecommendation is a suggested route for a member.
type RideRecommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Distance    string `json:"distance"`
	Difficulty  string `json:"difficulty"`
}

const (
	maxAIRequestsPerMinute = 20
	aiCacheDuration        = 5 * time.Minute
	aiModel                = "gemini-1.5-flash"
	aiCallTimeout          = 15 * time.Second

	poiPrompt = `You are a local guide for motorcyclists. Given a location and the rider's interests, suggest up to %d nearby points of interest relevant to riding: scenic roads, biker cafes, viewpoints, service shops, fuel stops.

Location: latitude %.5f, longitude %.5f
Interests: %s

Respond ONLY with a valid JSON array in this exact format:
[{"name":"...","type":"...","description":"...","latitude":0.0,"longitude":0.0}]`

	ridePrompt = `You are a motorcycle route planner. Suggest %d day rides starting near latitude %.5f, longitude %.5f for a rider with %s experience on a %s.

Respond ONLY with a valid JSON array in this exact format:
[{"title":"...","description":"...","distance":"...","difficulty":"..."}]`
)

type aiRateState struct {
	requests  int
	resetTime time.Time
}

// AIService wraps the Gemini client for POI discovery and ride suggestions.
// Responses are cached briefly and callers are rate limited per member.
type AIService struct {
	settingService SettingService

	initOnce sync.Once
	client   *genai.Client
	model    *genai.GenerativeModel

	cache *caching.Cache

	rateMu sync.Mutex
	rates  map[string]*aiRateState
}

func NewAIService() *AIService {
	return &AIService{
		cache: caching.NewCache(aiCacheDuration),
		rates: make(map[string]*aiRateState),
	}
}

func (s *AIService) init() {
	s.initOnce.Do(func() {
		apiKey := config.GetAIKey()
		if apiKey == "" {
			logger.Info("AI discovery disabled: no API key configured")
			return
		}
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
		if err != nil {
			logger.Warning("AI discovery disabled, client init failed:", err)
			return
		}
		model := client.GenerativeModel(aiModel)
		model.SetMaxOutputTokens(1024)
		model.SetTemperature(0.7)
		s.client = client
		s.model = model
	})
}

func (s *AIService) IsEnabled() bool {
	if enabled, err := s.settingService.GetAIEnabled(); err != nil || !enabled {
		return false
	}
	s.init()
	return s.client != nil
}

// DiscoverPOIs asks the model for rider-relevant places near the location.
func (s *AIService) DiscoverPOIs(ctx context.Context, memberID string, lat, lng float64, interests []string) ([]POI, error) {
	if !s.IsEnabled() {
		return nil, common.NewError("AI discovery is not enabled")
	}
	if !s.allow(memberID) {
		return nil, common.NewError("rate limit exceeded, please try again later")
	}

	interestText := "general riding"
	if len(interests) > 0 {
		interestText = strings.Join(interests, ", ")
	}
	cacheKey := fmt.Sprintf("poi:%.3f:%.3f:%s", lat, lng, interestText)
	if cached, ok := s.cache.Get(cacheKey); ok {
		if pois, ok := cached.([]POI); ok {
			logger.Debug("POI cache hit for", cacheKey)
			return pois, nil
		}
	}

	prompt := fmt.Sprintf(poiPrompt, 8, lat, lng, interestText)
	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var pois []POI
	if err := parseAIList(text, &pois); err != nil {
		logger.Warning("POI response unparseable:", err, "raw:", text)
		return []POI{}, nil
	}
	s.cache.Set(cacheKey, pois, aiCacheDuration)
	return pois, nil
}

// RecommendRides asks the model for day-ride suggestions tailored to the
// member's experience and motorcycle.
func (s *AIService) RecommendRides(ctx context.Context, memberID string, lat, lng float64, experience, motorcycle string) ([]RideRecommendation, error) {
	if !s.IsEnabled() {
		return nil, common.NewError("AI discovery is not enabled")
	}
	if !s.allow(memberID) {
		return nil, common.NewError("rate limit exceeded, please try again later")
	}

	cacheKey := fmt.Sprintf("ride:%.3f:%.3f:%s:%s", lat, lng, experience, motorcycle)
	if cached, ok := s.cache.Get(cacheKey); ok {
		if rides, ok := cached.([]RideRecommendation); ok {
			return rides, nil
		}
	}

	prompt := fmt.Sprintf(ridePrompt, 3, lat, lng, experience, motorcycle)
	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var rides []RideRecommendation
	if err := parseAIList(text, &rides); err != nil {
		logger.Warning("ride response unparseable:", err, "raw:", text)
		return []RideRecommendation{}, nil
	}
	s.cache.Set(cacheKey, rides, aiCacheDuration)
	return rides, nil
}

func (s *AIService) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, aiCallTimeout)
	defer cancel()

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", common.NewErrorf("generate content: %v", err)
	}
	return candidateText(resp)
}

// candidateText extracts the first text part of a model response. Content is
// nil when the candidate was blocked by a safety filter.
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", common.NewError("empty response from model")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

func (s *AIService) allow(memberID string) bool {
	now := time.Now()
	s.rateMu.Lock()
	defer s.rateMu.Unlock()

	state, exists := s.rates[memberID]
	if !exists || now.After(state.resetTime) {
		s.rates[memberID] = &aiRateState{requests: 1, resetTime: now.Add(time.Minute)}
		return true
	}
	if state.requests >= maxAIRequestsPerMinute {
		return false
	}
	state.requests++
	return true
}

func (s *AIService) Close() error {
	s.cache.Flush()
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// parseAIList decodes a JSON list from the model output, stripping a markdown
// code fence when one wraps it.
func parseAIList(text string, out any) error {
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}
	cleaned := extractJSONFromMarkdown(text)
	if cleaned == "" {
		return common.NewError("no JSON found in model output")
	}
	return json.Unmarshal([]byte(cleaned), out)
}

// extractJSONFromMarkdown pulls the payload out of a ``` block, or falls back
// to the outermost bracket pair.
func extractJSONFromMarkdown(text string) string {
	if idx := strings.Index(text, "```"); idx != -1 {
		if endIdx := strings.Index(text[idx+3:], "```"); endIdx != -1 {
			extracted := text[idx+3 : idx+3+endIdx]
			extracted = strings.TrimPrefix(extracted, "json")
			return strings.TrimSpace(extracted)
		}
	}
	start := strings.IndexAny(text, "[{")
	end := strings.LastIndexAny(text, "]}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return ""
}
