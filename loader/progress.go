package loader

import "sync"

// Phase is a coarse stage of a package download.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseDownloading
	PhaseProcessing
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseDownloading:
		return "downloading"
	case PhaseProcessing:
		return "processing"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Progress is one progress report. Percent never decreases within a single
// resolve and only reaches 100 together with PhaseComplete. Total is -1 when
// the source does not advertise a length.
type Progress struct {
	Phase   Phase
	Percent float64
	Loaded  int64
	Total   int64
}

// ProgressFunc receives progress reports. It is called synchronously from
// the downloading goroutine.
type ProgressFunc func(Progress)

// progressRelay forwards reports until its caller has returned.
type progressRelay struct {
	mu sync.Mutex
	fn ProgressFunc
}

func (r *progressRelay) report(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fn != nil {
		r.fn(p)
	}
}

func (r *progressRelay) detach() {
	r.mu.Lock()
	r.fn = nil
	r.mu.Unlock()
}

// progressReporter enforces the monotonic contract on top of a ProgressFunc.
type progressReporter struct {
	fn   ProgressFunc
	last float64
}

func (r *progressReporter) report(phase Phase, percent float64, loaded, total int64) {
	if r.fn == nil {
		return
	}
	if percent < r.last {
		percent = r.last
	}
	if percent >= 100 && phase != PhaseComplete {
		percent = 99
	}
	r.last = percent
	r.fn(Progress{Phase: phase, Percent: percent, Loaded: loaded, Total: total})
}

// downloadPercent maps bytes received into the streaming band.
func downloadPercent(loaded, total int64) float64 {
	if total <= 0 {
		return 10
	}
	frac := float64(loaded) / float64(total)
	if frac > 1 {
		frac = 1
	}
	return 30 + 50*frac
}
