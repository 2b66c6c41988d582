// Package tts speaks reply text aloud. Speak is fire-and-forget: playback
// runs detached from the caller and every failure is swallowed, so the
// router's contract ends at producing text.
package tts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	log "log/slog"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Modes.
const (
	ModeOffline    = "offline"
	ModeElevenLabs = "elevenlabs"
)

// Speaker selects between the offline espeak engine and the ElevenLabs API.
type Speaker struct {
	Mode    string
	Voice   string // espeak voice for offline mode
	APIKey  string
	VoiceID string // ElevenLabs voice
	HTTP    *http.Client
}

// NewSpeaker builds a Speaker; httpClient may be nil.
func NewSpeaker(mode, voice, apiKey, voiceID string, httpClient *http.Client) *Speaker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Speaker{
		Mode:    mode,
		Voice:   voice,
		APIKey:  apiKey,
		VoiceID: voiceID,
		HTTP:    httpClient,
	}
}

// Speak queues text for playback and returns immediately.
func (s *Speaker) Speak(text string) {
	if text == "" {
		return
	}
	go func() {
		var err error
		if s.Mode == ModeElevenLabs && s.APIKey != "" {
			err = s.speakEleven(text)
			if err != nil {
				log.Debug("elevenlabs failed, falling back to offline", "err", err)
				err = speakOffline(text, s.Voice)
			}
		} else {
			err = speakOffline(text, s.Voice)
		}
		if err != nil {
			log.Debug("speech playback failed", "err", err)
		}
	}()
}

type elevenRequest struct {
	Text          string            `json:"text"`
	ModelID       string            `json:"model_id"`
	VoiceSettings map[string]float64 `json:"voice_settings"`
}

// speakEleven fetches synthesized mp3 audio from ElevenLabs and plays it.
func (s *Speaker) speakEleven(text string) error {
	body, err := json.Marshal(elevenRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: map[string]float64{
			"stability":        0.4,
			"similarity_boost": 0.7,
		},
	})
	if err != nil {
		return fmt.Errorf("tts: encode request: %w", err)
	}

	url := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s", s.VoiceID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("xi-api-key", s.APIKey)
	req.Header.Set("accept", "audio/mpeg")
	req.Header.Set("content-type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("tts: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts: status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "lyra-tts-*.mp3")
	if err != nil {
		return fmt.Errorf("tts: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("tts: save audio: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return fmt.Errorf("tts: rewind: %w", err)
	}

	return playMP3(tmp)
}

// playMP3 decodes and plays an mp3 stream, blocking until it finishes.
func playMP3(r io.ReadCloser) error {
	streamer, format, err := mp3.Decode(r)
	if err != nil {
		return fmt.Errorf("tts: decode mp3: %w", err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("tts: init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
