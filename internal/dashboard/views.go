package dashboard

import (
	"log/slog"
	"time"

	"github.com/steveyegge/trackdash/internal/aggregate"
)

// Upstream is what Views needs from the tracker client.
type Upstream interface {
	Source
	ProjectLister
}

// Views bundles the dashboard and the single-purpose views over one upstream.
type Views struct {
	*Assembler
	*Service
}

// Options tunes NewViews.
type Options struct {
	SearchLimit int
	Concurrency int
	Allow       []string
	// Location renders since bounds in JQL (see query.Builder).
	Location *time.Location
}

// NewViews wires an Aggregator, Assembler and Service over src.
func NewViews(src Upstream, opts Options, logger *slog.Logger) Views {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	agg := aggregate.New(src, logger)
	agg.SearchLimit = opts.SearchLimit

	svc := NewService(src, logger)
	svc.SearchLimit = opts.SearchLimit
	svc.Location = opts.Location

	return Views{
		Assembler: &Assembler{
			Aggregator:  agg,
			Projects:    src,
			Concurrency: opts.Concurrency,
			Allow:       opts.Allow,
			Logger:      logger,
		},
		Service: svc,
	}
}
