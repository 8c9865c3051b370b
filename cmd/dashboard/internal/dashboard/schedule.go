package dashboard

import (
	"time"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/scheduler"
)

type Periods struct {
	Fast time.Duration
	Slow time.Duration
	Age  time.Duration
	Feed time.Duration
}

// Schedule registers every loader. Registration order is the start-up order:
// market, suggestions, summary, feed, then the age label.
func (l *Loaders) Schedule(s *scheduler.Scheduler, p Periods) error {
	slots := []struct {
		name   string
		period time.Duration
		task   scheduler.Task
	}{
		{"market", p.Fast, l.RefreshMarket},
		{"suggestions", p.Slow, l.RefreshSuggestions},
		{"summary", p.Slow, l.RefreshSummary},
		{"feed", p.Feed, l.RefreshFeed},
		{"age", p.Age, l.RefreshAge},
	}
	for _, sl := range slots {
		if _, err := s.Every(sl.name, sl.period, sl.task, true); err != nil {
			return err
		}
	}
	return nil
}
