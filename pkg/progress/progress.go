package progress

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/DipoleDigital/MongoDBBackup/internal/engine"
)

type Bar struct {
	*progressbar.ProgressBar
}

func NewBar(max int64, description string) *Bar {
	bar := progressbar.NewOptions64(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	return &Bar{ProgressBar: bar}
}

func (b *Bar) Increment() {
	b.Add(1)
}

func (b *Bar) Finish() {
	if b.ProgressBar == nil {
		return
	}
	b.ProgressBar.Finish()
}

// Reporter renders engine events as a per-collection progress bar. It
// wraps another reporter (typically the log reporter) so bar updates and
// log lines come from the same event stream.
type Reporter struct {
	bar  *Bar
	next engine.Reporter
}

func NewReporter(total int, description string, next engine.Reporter) *Reporter {
	if next == nil {
		next = engine.NopReporter{}
	}
	return &Reporter{
		bar:  NewBar(int64(total), description),
		next: next,
	}
}

func (r *Reporter) Publish(event engine.Event) {
	switch event.Kind {
	case engine.EventCollectionCompleted, engine.EventCollectionFailed, engine.EventCollectionSkipped:
		r.bar.Increment()
	case engine.EventRunCompleted:
		r.bar.Finish()
	}
	r.next.Publish(event)
}
