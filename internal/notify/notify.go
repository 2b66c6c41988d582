// Package notify plays the listening chime and raises desktop notifications.
package notify

import (
	"os"
	"os/exec"
	"time"

	log "log/slog"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Chime plays the mp3 at path, blocking until done. Failures are logged
// and swallowed; a missing chime must not block listening.
func Chime(path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Debug("chime unavailable", "path", path, "err", err)
		return
	}
	defer f.Close()

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		log.Debug("chime decode failed", "err", err)
		return
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		log.Debug("chime speaker init failed", "err", err)
		return
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
}

// Send raises a desktop notification via notify-send; errors are ignored.
func Send(text string) {
	_ = exec.Command("notify-send", "Lyra", text).Run()
}
