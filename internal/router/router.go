// Package router is the assistant's dispatch core: it classifies a raw
// input line against an ordered rule table, calls the matching collaborator,
// and degrades to the next option when one is unavailable. Route always
// returns display text; every collaborator failure comes back as a plain
// sentence, never as an error.
package router

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	log "log/slog"

	"lyra/internal/apperr"
	"lyra/internal/store"
)

// SystemPrompt is the persona for general Q&A.
const SystemPrompt = "You are Lyra, a concise, helpful personal assistant. Answer in clear short sentences. " +
	"If information may be outdated, mention briefly that it may be."

// minAnswerLen is the shortest trimmed LLM answer accepted before the
// search fallback fires.
const minAnswerLen = 4

// historyLines is how many events the history command shows.
const historyLines = 30

// Memory is the slice of the persistent store the router needs.
type Memory interface {
	Remember(key, value string) error
	Recall(key string) (store.Fact, bool)
	SetLastCapture(path string) error
	LastCapture() (store.Capture, bool)
	AddEvent(kind, detail string) error
	Recent(n int) []store.Event
}

// LLM produces a completion, or an error when the backend is unreachable.
type LLM interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Camera captures one frame and returns the saved path.
type Camera interface {
	Capture(ctx context.Context) (string, error)
}

// OCR extracts text from an image file. A stale path reports
// apperr.ErrNotFound.
type OCR interface {
	ExtractText(path string) (string, error)
}

// Searcher runs the web-search fallback.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Normalizer repairs near-miss command phrases; identity when nil.
type Normalizer func(string) string

// Router wires the collaborators together.
type Router struct {
	memory    Memory
	llm       LLM
	camera    Camera
	ocr       OCR
	searcher  Searcher
	normalize Normalizer
	rules     []rule
}

// rule is one entry of the ordered dispatch table. match returns the
// captured arguments and whether the rule fires.
type rule struct {
	name  string
	match func(text string) ([]string, bool)
	run   func(ctx context.Context, args []string) string
}

// New builds a router. All collaborators may be nil; a nil collaborator
// behaves like an unavailable one.
func New(memory Memory, llmClient LLM, camera Camera, ocr OCR, searcher Searcher, normalize Normalizer) *Router {
	r := &Router{
		memory:    memory,
		llm:       llmClient,
		camera:    camera,
		ocr:       ocr,
		searcher:  searcher,
		normalize: normalize,
	}
	r.rules = []rule{
		{name: "remember", match: matchRemember, run: r.runRemember},
		{name: "recall", match: matchRecall, run: r.runRecall},
		{name: "capture", match: matchExact("capture"), run: r.runCapture},
		{name: "read_text", match: matchExact("read text", "ocr", "read"), run: r.runReadText},
		{name: "describe", match: matchExact("describe", "analyze", "describe image", "what's in the image"), run: r.runDescribe},
		{name: "history", match: matchExact("history"), run: r.runHistory},
	}
	return r
}

// Route dispatches one user submission and returns the reply text.
// Empty or whitespace input is a no-op and yields "".
func (r *Router) Route(ctx context.Context, text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}

	if r.normalize != nil {
		t = r.normalize(t)
	}

	for _, rl := range r.rules {
		if args, ok := rl.match(t); ok {
			log.Debug("matched rule", "rule", rl.name, "input", t)
			return rl.run(ctx, args)
		}
	}

	return r.runChat(ctx, t)
}

var (
	rememberRe = regexp.MustCompile(`(?i)^remember\s+(.+?)\s+as\s+(.+)$`)
	recallRe   = regexp.MustCompile(`(?i)^what did i say about\s+(.+)$`)
)

func matchRemember(text string) ([]string, bool) {
	m := rememberRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return []string{strings.TrimSpace(m[1]), strings.TrimSpace(m[2])}, true
}

func matchRecall(text string) ([]string, bool) {
	m := recallRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return []string{strings.TrimSpace(m[1])}, true
}

// matchExact fires when the lowered input equals one of the phrases.
func matchExact(phrases ...string) func(string) ([]string, bool) {
	return func(text string) ([]string, bool) {
		lowered := strings.ToLower(text)
		for _, p := range phrases {
			if lowered == p {
				return nil, true
			}
		}
		return nil, false
	}
}

func (r *Router) runRemember(_ context.Context, args []string) string {
	key, value := args[0], args[1]
	if err := r.memory.Remember(key, value); err != nil {
		log.Error("remember failed", "key", key, "err", err)
		return "I couldn't save that right now."
	}
	return fmt.Sprintf("Okay, remembered %s = %s.", key, value)
}

func (r *Router) runRecall(_ context.Context, args []string) string {
	key := args[0]
	fact, ok := r.memory.Recall(key)
	if !ok {
		return fmt.Sprintf("I don't have anything saved for '%s'.", key)
	}
	// Echo the normalized key so the reply matches what was stored.
	return fmt.Sprintf("You told me: %s = %s (saved %s).", strings.ToLower(key), fact.Value, fact.Time)
}

func (r *Router) runCapture(ctx context.Context, _ []string) string {
	if r.camera == nil {
		return "Camera not available or capture failed."
	}
	path, err := r.camera.Capture(ctx)
	if err != nil {
		log.Warn("capture failed", "err", err)
		return "Camera not available or capture failed."
	}
	if err := r.memory.SetLastCapture(path); err != nil {
		log.Error("record capture failed", "path", path, "err", err)
	}
	if err := r.memory.AddEvent(store.EventCapture, path); err != nil {
		log.Error("capture event failed", "err", err)
	}
	return fmt.Sprintf("Captured to %s. You can say 'read text' or 'describe'.", path)
}

func (r *Router) runReadText(_ context.Context, _ []string) string {
	last, ok := r.memory.LastCapture()
	if !ok {
		return "No recent capture found."
	}
	if r.ocr == nil {
		return "Text extraction is not available."
	}
	text, err := r.ocr.ExtractText(last.Path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Sprintf("The capture at %s no longer exists.", last.Path)
		}
		log.Warn("ocr failed", "path", last.Path, "err", err)
		return fmt.Sprintf("Text extraction failed: %v.", err)
	}
	if text == "" {
		return "(No text detected.)"
	}
	return text
}

func (r *Router) runDescribe(ctx context.Context, _ []string) string {
	last, ok := r.memory.LastCapture()
	if !ok {
		return "No recent capture found."
	}

	hint := ""
	if r.ocr != nil {
		// A failed OCR pass just means no hint; the description can still run.
		if t, err := r.ocr.ExtractText(last.Path); err == nil {
			hint = t
		}
	}

	if r.llm == nil {
		return "Cannot analyze image (LLM offline)."
	}
	prompt := fmt.Sprintf("Describe the latest captured image briefly. OCR text (may be noisy):\n%s", hint)
	answer, err := r.llm.Generate(ctx, prompt, SystemPrompt)
	if err != nil {
		log.Warn("describe failed", "err", err)
		return "Cannot analyze image (LLM offline)."
	}
	return answer
}

func (r *Router) runHistory(_ context.Context, _ []string) string {
	events := r.memory.Recent(historyLines)
	if len(events) == 0 {
		return "No history yet."
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", e.Time, e.Type, e.Detail))
	}
	return strings.Join(lines, "\n")
}

// runChat is the default path: LLM first, web search when the LLM is
// unavailable or answers with fewer than minAnswerLen characters. The
// submission is recorded as a chat event whichever branch produced the
// reply.
func (r *Router) runChat(ctx context.Context, text string) string {
	var answer string
	var err error

	if r.llm != nil {
		answer, err = r.llm.Generate(ctx, text, SystemPrompt)
	} else {
		err = apperr.ErrUnavailable
	}

	if err != nil || len(strings.TrimSpace(answer)) < minAnswerLen {
		if err != nil {
			log.Debug("llm unavailable, falling back to search", "err", err)
		}
		answer = r.searchFallback(ctx, text)
	}

	if err := r.memory.AddEvent(store.EventChat, text); err != nil {
		log.Error("chat event failed", "err", err)
	}
	return answer
}

func (r *Router) searchFallback(ctx context.Context, query string) string {
	if r.searcher == nil {
		return "I couldn't find anything relevant online."
	}
	result, err := r.searcher.Search(ctx, query)
	if err != nil {
		return fmt.Sprintf("Search error: %v.", err)
	}
	return result
}
