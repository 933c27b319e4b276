// Package llm generates chat replies through a prioritized list of
// OpenAI-compatible and Cohere-compatible providers. Fallback across
// providers is an explicit state machine; recently failed providers are
// skipped for a cooldown period, and identical requests are served from a
// short-lived reply cache.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fridayhq/friday/internal/httpx"
	"github.com/fridayhq/friday/models"
)

// Shape selects the wire format a provider speaks.
type Shape string

const (
	ShapeOpenAI Shape = "openai"
	ShapeCohere Shape = "cohere"
)

// Provider is one entry in the fallback chain. Lower Priority is tried first.
type Provider struct {
	Name        string
	URL         string
	Key         string
	Model       string
	Shape       Shape
	Enabled     bool
	Priority    int
	MaxTokens   int
	Temperature float64
}

// State tracks where a generation attempt is in the fallback chain.
type State int

const (
	StateIdle State = iota
	StateTrying
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTrying:
		return "trying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// UnavailableReply is returned verbatim when every provider fails.
const UnavailableReply = "I'm having trouble reaching my language providers right now. Please try again in a moment."

const (
	// failedCooldown is how long a provider stays skipped after a failure.
	failedCooldown = 5 * time.Minute
	// replyTTL bounds how long identical requests reuse a cached reply.
	replyTTL = 10 * time.Minute
	// cacheSystemPrefix is how much of the system prompt keys the cache.
	cacheSystemPrefix = 200

	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second
)

// ErrNoProviders is returned when the chain has no enabled providers at all.
var ErrNoProviders = errors.New("no enabled chat providers configured")

// Result describes one generation outcome.
type Result struct {
	Text     string
	Provider string
	Cached   bool
	State    State
}

type cachedReply struct {
	text string
	at   time.Time
}

// Generator walks the provider chain until one answers.
type Generator struct {
	http      *httpx.Client
	providers []Provider
	log       *log.Logger
	now       func() time.Time

	// OnFailure, when set, is invoked once per provider failure.
	OnFailure func(provider string)

	mu     sync.Mutex
	failed map[string]time.Time
	cache  map[string]cachedReply
}

func NewGenerator(providers []Provider, timeout time.Duration, logger *log.Logger) *Generator {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Generator{
		http:      httpx.NewClient(timeout, 0, 0),
		providers: sorted,
		log:       logger,
		now:       time.Now,
		failed:    make(map[string]time.Time),
		cache:     make(map[string]cachedReply),
	}
}

// Generate walks enabled providers in priority order, skipping those inside
// their failure cooldown. The first success is cached and returned. When the
// chain is exhausted the literal UnavailableReply is returned with a
// StateExhausted result and no error; only a chain with zero enabled
// providers is an error.
func (g *Generator) Generate(ctx context.Context, system string, turns []models.Turn) (Result, error) {
	key := cacheKey(system, turns)
	if text, ok := g.cachedReply(key); ok {
		return Result{Text: text, Cached: true, State: StateSucceeded}, nil
	}

	enabled := 0
	state := StateIdle
	for _, p := range g.providers {
		if !p.Enabled {
			continue
		}
		enabled++
		if g.inCooldown(p.Name) {
			continue
		}
		state = StateTrying
		text, err := g.call(ctx, p, system, turns)
		if err != nil {
			g.log.Printf("provider %s failed: %v", p.Name, err)
			g.markFailed(p.Name)
			if g.OnFailure != nil {
				g.OnFailure(p.Name)
			}
			if ctx.Err() != nil {
				return Result{State: state}, ctx.Err()
			}
			continue
		}
		g.storeReply(key, text)
		return Result{Text: text, Provider: p.Name, State: StateSucceeded}, nil
	}
	if enabled == 0 {
		return Result{State: StateIdle}, ErrNoProviders
	}
	return Result{Text: UnavailableReply, State: StateExhausted}, nil
}

// FailedProviders lists providers currently inside their cooldown.
func (g *Generator) FailedProviders() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	var out []string
	for name, at := range g.failed {
		if now.Sub(at) >= failedCooldown {
			delete(g.failed, name)
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (g *Generator) inCooldown(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	at, ok := g.failed[name]
	if !ok {
		return false
	}
	if g.now().Sub(at) >= failedCooldown {
		delete(g.failed, name)
		return false
	}
	return true
}

func (g *Generator) markFailed(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed[name] = g.now()
}

func (g *Generator) cachedReply(key string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.cache[key]
	if !ok {
		return "", false
	}
	if g.now().Sub(c.at) >= replyTTL {
		delete(g.cache, key)
		return "", false
	}
	return c.text, true
}

func (g *Generator) storeReply(key, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache[key] = cachedReply{text: text, at: g.now()}
}

// cacheKey hashes the last user message plus the head of the system prompt.
// Prompts that diverge within that head get distinct keys; prompts that agree
// on it intentionally share the cached reply.
func cacheKey(system string, turns []models.Turn) string {
	lastUser := ""
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == models.RoleUser {
			lastUser = turns[i].Content
			break
		}
	}
	head := system
	if len(head) > cacheSystemPrefix {
		head = head[:cacheSystemPrefix]
	}
	sum := sha256.Sum256([]byte(lastUser + "|" + head))
	return hex.EncodeToString(sum[:])
}

func (g *Generator) call(ctx context.Context, p Provider, system string, turns []models.Turn) (string, error) {
	switch p.Shape {
	case ShapeCohere:
		return g.callCohere(ctx, p, system, turns)
	default:
		return g.callOpenAI(ctx, p, system, turns)
	}
}

func (g *Generator) callOpenAI(ctx context.Context, p Provider, system string, turns []models.Turn) (string, error) {
	messages := make([]models.Turn, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, models.Turn{Role: models.RoleSystem, Content: system})
	}
	messages = append(messages, turns...)

	body := map[string]any{
		"model":       p.Model,
		"messages":    messages,
		"max_tokens":  maxTokens(p),
		"temperature": temperature(p),
	}
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + p.Key}
	if err := g.http.DoJSON(ctx, "POST", strings.TrimRight(p.URL, "/")+"/chat/completions", headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *Generator) callCohere(ctx context.Context, p Provider, system string, turns []models.Turn) (string, error) {
	var prompt strings.Builder
	if system != "" {
		prompt.WriteString(system)
		prompt.WriteString("\n\n")
	}
	for _, t := range turns {
		prompt.WriteString(t.Role)
		prompt.WriteString(": ")
		prompt.WriteString(t.Content)
		prompt.WriteString("\n")
	}
	prompt.WriteString("assistant:")

	body := map[string]any{
		"model":       p.Model,
		"prompt":      prompt.String(),
		"max_tokens":  maxTokens(p),
		"temperature": temperature(p),
	}
	var resp struct {
		Generations []struct {
			Text string `json:"text"`
		} `json:"generations"`
	}
	headers := map[string]string{"Authorization": "Bearer " + p.Key}
	if err := g.http.DoJSON(ctx, "POST", strings.TrimRight(p.URL, "/")+"/generate", headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Generations) == 0 || strings.TrimSpace(resp.Generations[0].Text) == "" {
		return "", errors.New("empty generation")
	}
	return strings.TrimSpace(resp.Generations[0].Text), nil
}

func maxTokens(p Provider) int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return defaultMaxTokens
}

func temperature(p Provider) float64 {
	if p.Temperature > 0 {
		return p.Temperature
	}
	return defaultTemperature
}
