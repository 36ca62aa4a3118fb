package radio

import (
	"time"

	"github.com/hammamikhairi/tannoy/internal/logger"
)

// fadeSteps is the fixed number of volume steps per fade.
const fadeSteps = 20

// Ducker ramps the radio volume down while a voice line plays and back
// up afterwards.
type Ducker struct {
	player *Player
	log    *logger.Logger
}

// NewDucker creates a ducker over the given player.
func NewDucker(player *Player, log *logger.Logger) *Ducker {
	return &Ducker{player: player, log: log}
}

// Fade ramps the radio from one normalized volume to another over the
// given duration. The call blocks for the full duration so callers can
// sequence it before and after foreground playback. A no-op when the
// radio is not playing; aborts silently if the track is released
// mid-fade. The exact end volume is pinned at completion so repeated
// fades never drift.
func (d *Ducker) Fade(from, to float64, duration time.Duration) {
	if !d.player.Playing() {
		return
	}

	d.log.Debug("ducker: fading %.2f -> %.2f over %v", from, to, duration)

	step := duration / fadeSteps
	delta := (to - from) / fadeSteps
	current := from
	for i := 0; i < fadeSteps; i++ {
		current += delta
		if !d.player.adjust(toPercent(current)) {
			return
		}
		time.Sleep(step)
	}
	d.player.adjust(toPercent(to))
}

// toPercent scales a normalized volume onto the 0-100 integer scale.
func toPercent(v float64) int {
	return clampPercent(int(v * 100))
}
