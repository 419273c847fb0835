package main

import (
	"log/slog"

	"github.com/steveyegge/trackdash/internal/config"
	"github.com/steveyegge/trackdash/internal/dashboard"
	"github.com/steveyegge/trackdash/internal/fetch"
	"github.com/steveyegge/trackdash/internal/jira"
	"github.com/steveyegge/trackdash/internal/telemetry"
)

// buildViews wires fetcher, Jira client and dashboard views from cfg. With
// telemetry enabled the fetcher reports metrics and each upstream call is
// traced.
func buildViews(cfg *config.Config, logger *slog.Logger) (dashboard.Views, error) {
	f := fetch.New(logger).WithPolicy(cfg.Fetch.MaxRetries, cfg.Fetch.InitialDelay)
	f.AttemptTimeout = cfg.Fetch.AttemptTimeout

	var doer jira.Doer = f
	if cfg.Telemetry.Enabled {
		obs, err := telemetry.NewFetchObserver(nil)
		if err != nil {
			return dashboard.Views{}, err
		}
		f.Observer = obs
		doer = telemetry.WrapDoer(f, nil)
	}

	loc, err := cfg.Location()
	if err != nil {
		return dashboard.Views{}, err
	}

	client := jira.NewClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.APIToken, doer, logger)
	client.SearchLimit = cfg.Search.MaxResults
	client.PageSize = cfg.Search.PageSize

	return dashboard.NewViews(client, dashboard.Options{
		SearchLimit: cfg.Search.MaxResults,
		Concurrency: cfg.Dashboard.Concurrency,
		Allow:       cfg.Dashboard.Projects,
		Location:    loc,
	}, logger), nil
}
