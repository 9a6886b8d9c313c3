package fetch

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar returns an observer that renders a byte progress bar for one
// transfer on w. The bar is created on the first Downloading state.
func ProgressBar(w io.Writer, description string) func(State) {
	var (
		bar  *progressbar.ProgressBar
		seen int64
	)
	return func(s State) {
		switch s.Phase {
		case PhaseDownloading:
			if bar == nil || s.Downloaded < seen {
				bar = progressbar.NewOptions64(s.Total,
					progressbar.OptionSetWriter(w),
					progressbar.OptionSetDescription(description),
					progressbar.OptionShowBytes(true),
					progressbar.OptionSetWidth(30),
					progressbar.OptionThrottle(100*time.Millisecond),
					progressbar.OptionClearOnFinish(),
				)
				seen = 0
			}
			if delta := s.Downloaded - seen; delta > 0 {
				_ = bar.Add(int(delta))
				seen = s.Downloaded
			}
		case PhaseCompleted, PhaseFailed:
			if bar != nil {
				_ = bar.Finish()
			}
		}
	}
}
