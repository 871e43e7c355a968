package replay

import (
	"context"
	"fmt"

	"github.com/okian/inkcheck/pkg/logger"
)

// summarize folds results into per-profile statistics and counts reports
// that fall outside their profile's band.
func summarize(ctx context.Context, cfg *Config, selected []Profile, results []Result, summary *Summary) {
	byName := make(map[string]Profile, len(selected))
	summary.Profiles = make(map[string]*ProfileStats, len(selected))
	for _, p := range selected {
		byName[p.Name] = p
		summary.Profiles[p.Name] = &ProfileStats{MinRisk: -1}
	}

	sums := make(map[string]int, len(selected))
	for _, res := range results {
		ps := summary.Profiles[res.Profile]
		ps.Submitted++
		summary.Submitted++
		if res.Err != nil {
			ps.Failed++
			summary.Failed++
			continue
		}
		ps.Scored++
		summary.Scored++
		sums[res.Profile] += res.Risk
		if ps.MinRisk < 0 || res.Risk < ps.MinRisk {
			ps.MinRisk = res.Risk
		}
		if res.Risk > ps.MaxRisk {
			ps.MaxRisk = res.Risk
		}
		if !byName[res.Profile].Expects(res.Risk) {
			ps.Mismatched++
			summary.Mismatched++
			if cfg.Verbose {
				p := byName[res.Profile]
				logger.Get().Warn(ctx, "report outside expected band",
					logger.String("profile", res.Profile),
					logger.String("sessionID", res.SessionID),
					logger.Int("risk", res.Risk),
					logger.String("band", fmt.Sprintf("%d-%d", p.MinRisk, p.MaxRisk)))
			}
		}
	}
	for name, ps := range summary.Profiles {
		if ps.Scored > 0 {
			ps.MeanRisk = float64(sums[name]) / float64(ps.Scored)
		}
		if ps.MinRisk < 0 {
			ps.MinRisk = 0
		}
	}
}

// sortedByRisk reports whether entries are in non-increasing risk order.
func sortedByRisk(entries []triageEntry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].Risk > entries[i-1].Risk {
			return false
		}
	}
	return true
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, summary *Summary) {
	var perSecond float64
	if summary.Duration > 0 {
		perSecond = float64(summary.Submitted) / summary.Duration.Seconds()
	}
	log := logger.Get()
	for name, ps := range summary.Profiles {
		log.Info(ctx, "profile",
			logger.String("profile", name),
			logger.Int("submitted", ps.Submitted),
			logger.Int("scored", ps.Scored),
			logger.Int("failed", ps.Failed),
			logger.Int("mismatched", ps.Mismatched),
			logger.Int("minRisk", ps.MinRisk),
			logger.Int("maxRisk", ps.MaxRisk),
			logger.Float64("meanRisk", ps.MeanRisk))
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", summary.Generated),
		logger.Int("submitted", summary.Submitted),
		logger.Int("scored", summary.Scored),
		logger.Int("failed", summary.Failed),
		logger.Int("mismatched", summary.Mismatched),
		logger.Int("triageEntries", summary.TriageEntries),
		logger.Bool("triageSorted", summary.TriageSorted),
		logger.Duration("duration", summary.Duration),
		logger.Float64("sessionsPerSecond", perSecond))
}
