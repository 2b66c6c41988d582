package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"lyra/internal/apperr"
	"lyra/internal/store"
)

type fakeLLM struct {
	answer string
	err    error
	calls  int
	prompt string
	system string
}

func (f *fakeLLM) Generate(_ context.Context, prompt, system string) (string, error) {
	f.calls++
	f.prompt = prompt
	f.system = system
	return f.answer, f.err
}

type fakeCamera struct {
	path  string
	err   error
	calls int
}

func (f *fakeCamera) Capture(context.Context) (string, error) {
	f.calls++
	return f.path, f.err
}

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) ExtractText(string) (string, error) {
	return f.text, f.err
}

type fakeSearcher struct {
	result string
	err    error
	calls  int
}

func (f *fakeSearcher) Search(_ context.Context, query string) (string, error) {
	f.calls++
	return f.result, f.err
}

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return s
}

func TestEmptyInputIsNoOp(t *testing.T) {
	mem := tempStore(t)
	r := New(mem, nil, nil, nil, nil, nil)

	for _, input := range []string{"", "   ", "\t\n"} {
		if got := r.Route(context.Background(), input); got != "" {
			t.Errorf("Route(%q) = %q, want empty", input, got)
		}
	}
	if events := mem.Recent(10); len(events) != 0 {
		t.Errorf("empty input recorded %d events", len(events))
	}
}

func TestRememberAndRecall(t *testing.T) {
	mem := tempStore(t)
	r := New(mem, nil, nil, nil, nil, nil)

	got := r.Route(context.Background(), "remember wifi password as abc123")
	want := "Okay, remembered wifi password = abc123."
	if got != want {
		t.Errorf("remember reply = %q, want %q", got, want)
	}

	got = r.Route(context.Background(), "what did i say about WiFi Password")
	if !strings.Contains(got, "wifi password = abc123") {
		t.Errorf("recall reply = %q, want it to contain %q", got, "wifi password = abc123")
	}
	if !strings.Contains(got, "saved ") {
		t.Errorf("recall reply = %q, want a saved timestamp", got)
	}
}

func TestRecallMissingNamesKey(t *testing.T) {
	r := New(tempStore(t), nil, nil, nil, nil, nil)

	got := r.Route(context.Background(), "what did i say about the meaning of life")
	if !strings.Contains(got, "the meaning of life") {
		t.Errorf("reply = %q, want it to name the key", got)
	}
}

func TestRememberCaseInsensitiveVerb(t *testing.T) {
	r := New(tempStore(t), nil, nil, nil, nil, nil)

	got := r.Route(context.Background(), "REMEMBER door code AS 4512")
	if got != "Okay, remembered door code = 4512." {
		t.Errorf("reply = %q", got)
	}
}

func TestCaptureFailureLeavesLastCapture(t *testing.T) {
	mem := tempStore(t)
	cam := &fakeCamera{err: errors.New("no device")}
	r := New(mem, nil, cam, nil, nil, nil)

	got := r.Route(context.Background(), "capture")
	if got != "Camera not available or capture failed." {
		t.Errorf("reply = %q", got)
	}
	if _, ok := mem.LastCapture(); ok {
		t.Error("failed capture altered LastCapture")
	}
}

func TestCaptureSuccess(t *testing.T) {
	mem := tempStore(t)
	cam := &fakeCamera{path: "captures/capture_20250601_120000.png"}
	r := New(mem, nil, cam, nil, nil, nil)

	got := r.Route(context.Background(), "capture")
	if !strings.Contains(got, cam.path) {
		t.Errorf("reply = %q, want it to include the saved path", got)
	}
	if !strings.Contains(got, "'read text'") || !strings.Contains(got, "'describe'") {
		t.Errorf("reply = %q, want suggested next commands", got)
	}

	c, ok := mem.LastCapture()
	if !ok || c.Path != cam.path {
		t.Errorf("LastCapture = %+v ok=%v", c, ok)
	}

	events := mem.Recent(10)
	if len(events) != 2 {
		t.Fatalf("events = %d, want capture_set + capture", len(events))
	}
	if events[0].Type != store.EventCaptureSet || events[1].Type != store.EventCapture {
		t.Errorf("event kinds = %s, %s", events[0].Type, events[1].Type)
	}
}

func TestReadTextWithoutCapture(t *testing.T) {
	r := New(tempStore(t), nil, nil, &fakeOCR{text: "hi"}, nil, nil)

	for _, input := range []string{"read text", "ocr", "read", "READ TEXT"} {
		if got := r.Route(context.Background(), input); got != "No recent capture found." {
			t.Errorf("Route(%q) = %q", input, got)
		}
	}
}

func TestReadText(t *testing.T) {
	mem := tempStore(t)
	_ = mem.SetLastCapture("shot.png")

	cases := []struct {
		name string
		ocr  *fakeOCR
		want string
	}{
		{"text", &fakeOCR{text: "EXIT 12"}, "EXIT 12"},
		{"empty", &fakeOCR{}, "(No text detected.)"},
		{"stale", &fakeOCR{err: fmt.Errorf("gone: %w", apperr.ErrNotFound)}, "The capture at shot.png no longer exists."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(mem, nil, nil, tc.ocr, nil, nil)
			if got := r.Route(context.Background(), "read text"); got != tc.want {
				t.Errorf("reply = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDescribeWithoutCapture(t *testing.T) {
	r := New(tempStore(t), &fakeLLM{answer: "a cat"}, nil, nil, nil, nil)

	for _, input := range []string{"describe", "analyze", "describe image", "what's in the image"} {
		if got := r.Route(context.Background(), input); got != "No recent capture found." {
			t.Errorf("Route(%q) = %q", input, got)
		}
	}
}

func TestDescribeUsesOCRHint(t *testing.T) {
	mem := tempStore(t)
	_ = mem.SetLastCapture("shot.png")

	model := &fakeLLM{answer: "A street sign reading EXIT 12."}
	r := New(mem, model, nil, &fakeOCR{text: "EXIT 12"}, nil, nil)

	got := r.Route(context.Background(), "describe")
	if got != model.answer {
		t.Errorf("reply = %q", got)
	}
	if !strings.Contains(model.prompt, "EXIT 12") {
		t.Errorf("prompt = %q, want OCR hint included", model.prompt)
	}
	if model.system != SystemPrompt {
		t.Errorf("system = %q", model.system)
	}
}

func TestDescribeOffline(t *testing.T) {
	mem := tempStore(t)
	_ = mem.SetLastCapture("shot.png")

	r := New(mem, &fakeLLM{err: apperr.ErrUnavailable}, nil, &fakeOCR{}, nil, nil)
	if got := r.Route(context.Background(), "describe"); got != "Cannot analyze image (LLM offline)." {
		t.Errorf("reply = %q", got)
	}
}

func TestHistoryEmpty(t *testing.T) {
	r := New(tempStore(t), nil, nil, nil, nil, nil)
	if got := r.Route(context.Background(), "history"); got != "No history yet." {
		t.Errorf("reply = %q", got)
	}
}

func TestHistoryFormatAndIdempotence(t *testing.T) {
	mem := tempStore(t)
	_ = mem.AddEvent(store.EventChat, "hello")
	_ = mem.AddEvent(store.EventRemember, "k = v")

	r := New(mem, nil, nil, nil, nil, nil)

	first := r.Route(context.Background(), "history")
	lines := strings.Split(first, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "[") || !strings.Contains(lines[0], "] chat: hello") {
		t.Errorf("line = %q, want [time] kind: detail", lines[0])
	}

	second := r.Route(context.Background(), "history")
	if first != second {
		t.Error("history is not idempotent without intervening events")
	}
}

func TestChatVerbatimAnswer(t *testing.T) {
	mem := tempStore(t)
	model := &fakeLLM{answer: "0123456789"} // 10 chars, no error
	web := &fakeSearcher{result: "from the web"}
	r := New(mem, model, nil, nil, web, nil)

	got := r.Route(context.Background(), "what is the capital of France")
	if got != "0123456789" {
		t.Errorf("reply = %q, want the model answer verbatim", got)
	}
	if web.calls != 0 {
		t.Errorf("search called %d times, want 0", web.calls)
	}

	events := mem.Recent(10)
	if len(events) != 1 || events[0].Type != store.EventChat {
		t.Fatalf("events = %+v, want one chat event", events)
	}
	if events[0].Detail != "what is the capital of France" {
		t.Errorf("chat detail = %q", events[0].Detail)
	}
}

func TestChatFallsBackWhenOffline(t *testing.T) {
	mem := tempStore(t)
	model := &fakeLLM{err: apperr.ErrUnavailable}
	web := &fakeSearcher{result: "Top results for 'x':"}
	r := New(mem, model, nil, nil, web, nil)

	got := r.Route(context.Background(), "x")
	if got != web.result {
		t.Errorf("reply = %q", got)
	}
	if web.calls != 1 {
		t.Errorf("search calls = %d, want 1", web.calls)
	}

	// The chat event is recorded even when the answer came through search.
	events := mem.Recent(10)
	if len(events) != 1 || events[0].Type != store.EventChat {
		t.Fatalf("events = %+v, want one chat event", events)
	}
}

func TestChatFallsBackOnShortAnswer(t *testing.T) {
	model := &fakeLLM{answer: " ok "} // trims to 2 chars
	web := &fakeSearcher{result: "searched"}
	r := New(tempStore(t), model, nil, nil, web, nil)

	if got := r.Route(context.Background(), "hm"); got != "searched" {
		t.Errorf("reply = %q", got)
	}
	if web.calls != 1 {
		t.Errorf("search calls = %d, want 1", web.calls)
	}
}

func TestChatSearchError(t *testing.T) {
	model := &fakeLLM{err: apperr.ErrUnavailable}
	web := &fakeSearcher{err: errors.New("network down")}
	r := New(tempStore(t), model, nil, nil, web, nil)

	got := r.Route(context.Background(), "anything")
	if !strings.HasPrefix(got, "Search error:") {
		t.Errorf("reply = %q, want a search error sentence", got)
	}
}

func TestStructuredIntentsRecordNoChatEvent(t *testing.T) {
	mem := tempStore(t)
	r := New(mem, &fakeLLM{answer: "long enough"}, nil, nil, nil, nil)

	_ = r.Route(context.Background(), "remember a as b")
	_ = r.Route(context.Background(), "what did i say about a")
	_ = r.Route(context.Background(), "history")

	for _, e := range mem.Recent(50) {
		if e.Type == store.EventChat {
			t.Errorf("structured intent recorded a chat event: %+v", e)
		}
	}
}

func TestNormalizerApplied(t *testing.T) {
	mem := tempStore(t)
	_ = mem.AddEvent(store.EventChat, "x")

	normalize := func(s string) string {
		if s == "hastory" {
			return "history"
		}
		return s
	}
	r := New(mem, nil, nil, nil, nil, normalize)

	got := r.Route(context.Background(), "hastory")
	if !strings.Contains(got, "chat: x") {
		t.Errorf("reply = %q, want history output after normalization", got)
	}
}
