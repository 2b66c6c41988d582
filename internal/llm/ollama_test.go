package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lyra/internal/apperr"
)

func TestOllamaGenerate(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"response":"  Paris is the capital of France.  "}`))
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "gemma:2b", 10*time.Second, nil)
	got, err := c.Generate(context.Background(), "capital of France?", "Be brief.")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Paris is the capital of France." {
		t.Errorf("answer = %q", got)
	}

	if gotBody["model"] != "gemma:2b" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["stream"] != false {
		t.Errorf("stream = %v", gotBody["stream"])
	}
	if gotBody["prompt"] != "Be brief.\n\ncapital of France?" {
		t.Errorf("prompt = %v", gotBody["prompt"])
	}
}

func TestOllamaChoicesFallback(t *testing.T) {
	bodies := []string{
		`{"choices":[{"message":"from message"}]}`,
		`{"choices":[{"text":"from text"}]}`,
		`{"choices":[{"content":"from content"}]}`,
	}
	wants := []string{"from message", "from text", "from content"}

	for i, body := range bodies {
		body := body
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		c := NewOllama(srv.URL, "m", 0, nil)
		got, err := c.Generate(context.Background(), "q", "")
		srv.Close()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if got != wants[i] {
			t.Errorf("answer = %q, want %q", got, wants[i])
		}
	}
}

func TestOllamaNon2xxIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "m", 0, nil)
	_, err := c.Generate(context.Background(), "q", "")
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestOllamaTransportFailureIsUnavailable(t *testing.T) {
	c := NewOllama("http://127.0.0.1:1", "m", time.Second, nil)
	_, err := c.Generate(context.Background(), "q", "")
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
