// Package app is the composition root shared by the binaries: it turns a
// Config into a wired router and speaker.
package app

import (
	"fmt"
	"net/http"

	"lyra/internal/config"
	"lyra/internal/llm"
	"lyra/internal/proxy"
	"lyra/internal/router"
	"lyra/internal/search"
	"lyra/internal/spellfix"
	"lyra/internal/store"
	"lyra/internal/tts"
	"lyra/internal/vision"
)

// App bundles the wired components.
type App struct {
	Router  *router.Router
	Speaker *tts.Speaker
	Store   *store.Store
}

// New validates cfg and wires the store, adapters, and router.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: invalid config: %w", err)
	}

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	var httpClient *http.Client
	if cfg.ProxyAddr != "" {
		httpClient, err = proxy.NewSOCKSClient(cfg.ProxyAddr, cfg.LLMTimeout)
		if err != nil {
			return nil, fmt.Errorf("app: dial socks proxy %s: %w", cfg.ProxyAddr, err)
		}
	}

	var llmClient llm.Client
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		llmClient = llm.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.LLMTimeout, httpClient)
	default:
		llmClient = llm.NewOllama(cfg.OllamaHost, cfg.OllamaModel, cfg.LLMTimeout, httpClient)
	}

	camera := vision.NewCamera(cfg.CameraDevice, cfg.CapturesDir)
	ocr := vision.NewOCR(cfg.TesseractPath)
	searcher := search.NewDuckDuckGo(cfg.UserAgent, cfg.SearchTimeout, httpClient, llmClient)
	speaker := tts.NewSpeaker(cfg.TTSMode, cfg.Voice, cfg.ElevenAPIKey, cfg.ElevenVoiceID, httpClient)

	return &App{
		Router:  router.New(st, llmClient, camera, ocr, searcher, spellfix.Fix),
		Speaker: speaker,
		Store:   st,
	}, nil
}
