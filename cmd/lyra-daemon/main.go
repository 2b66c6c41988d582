package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"lyra/internal/app"
	"lyra/internal/audio"
	"lyra/internal/config"
	"lyra/internal/ipc"
	"lyra/internal/notify"
	"lyra/pkg/audioconv"
	"lyra/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type daemon struct {
	app    *app.App
	cfg    *config.Config
	rec    *audio.Recorder
	ducker *audio.Ducker
	stt    *stt.Transcriber
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	cfg := config.FromEnv()

	a, err := app.New(cfg)
	if err != nil {
		log.Error("Failed to boot", "err", err)
		os.Exit(1)
	}

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(cfg.WhisperModel)
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.WhisperModel, "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	log.Debug("Loaded whisper")

	d := &daemon{
		app:    a,
		cfg:    cfg,
		rec:    rec,
		ducker: audio.NewDucker([]string{"lyra"}, 20),
		stt:    whisper,
	}

	if err := ipc.Serve(d.handle); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful")

	select {}
}

func (d *daemon) handle(msg ipc.ControlMessage) {
	switch msg.Cmd {
	case "trigger":
		d.handleTrigger()
	case "say":
		d.respond(msg.Arg)
	case "audio":
		d.handleAudioFile(msg.Arg)
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
	}
}

// handleTrigger runs one voice interaction: chime, record until silence,
// transcribe, route, speak.
func (d *daemon) handleTrigger() {
	notify.Chime(d.cfg.ChimePath)
	notify.Send("Listening...")

	log.Info("Starting listening")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := d.ducker.DuckOthers(ctx, 0.3, 300*time.Millisecond); err != nil {
		log.Debug("Duck failed", "err", err)
	}
	defer func() {
		if err := d.ducker.UnduckOthers(ctx, 300*time.Millisecond); err != nil {
			log.Debug("Unduck failed", "err", err)
		}
	}()

	pcm, err := d.rec.RecordAuto()
	if err != nil {
		log.Error("Failed to record", "err", err)
		return
	}

	log.Info("Recorded", "samples", len(pcm))

	d.transcribeAndRespond(ctx, pcm)
}

// handleAudioFile routes the transcription of an audio note file.
func (d *daemon) handleAudioFile(path string) {
	if path == "" {
		log.Warn("audio command without a path")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	pcm, err := audioconv.ToPCM16k(ctx, path, audioconv.Options{})
	if err != nil {
		log.Error("Failed to decode audio file", "path", path, "err", err)
		return
	}

	d.transcribeAndRespond(ctx, pcm)
}

func (d *daemon) transcribeAndRespond(ctx context.Context, pcm []float32) {
	res, err := d.stt.TranscribePCM(ctx, pcm, stt.Options{Language: "auto"})
	if err != nil {
		log.Error("Failed to transcribe", "err", err)
		return
	}

	log.Info("Transcribed", "text", res.Text)

	d.respond(res.Text)
}

func (d *daemon) respond(text string) {
	reply := d.app.Router.Route(context.Background(), text)
	if reply == "" {
		return
	}

	log.Info("Reply ready", "reply", reply)
	d.app.Speaker.Speak(reply)
}
