package selection

import (
	"sort"

	"github.com/gfxsel/gfxsel/pkg/backend"
)

// Select picks exactly one winning family from the probe results, or reports
// failure. The policy, in order: discard unavailable and unscored probes;
// restrict to probes meeting requirements (widening to all available probes
// only when the config allows degraded fallback); honor the preferred family
// unconditionally when eligible; otherwise resolve via the configured
// strategy. Ties within a strategy break by total score, then by family
// declaration order, so identical inputs always produce the same winner.
func Select(results []ProbeResult, cfg Config) (backend.Family, bool) {
	candidates := make(map[backend.Family]bool)
	for _, f := range cfg.Candidates() {
		candidates[f] = true
	}

	var available []ProbeResult
	for _, r := range results {
		if !candidates[r.Family] {
			continue
		}
		if r.Available && r.Score != nil {
			available = append(available, r)
		}
	}
	if len(available) == 0 {
		return "", false
	}

	eligible := available[:0:0]
	for _, r := range available {
		if r.Score.MeetsRequirements {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		if !cfg.AllowDegraded {
			return "", false
		}
		eligible = available
	}

	// Preferred family is an override, not a strategy input.
	if cfg.Preferred != "" {
		for _, r := range eligible {
			if r.Family == cfg.Preferred {
				return r.Family, true
			}
		}
	}

	winner := resolveStrategy(eligible, cfg)
	return winner.Family, true
}

// resolveStrategy ranks the eligible probes by the configured strategy.
// eligible is never empty here.
func resolveStrategy(eligible []ProbeResult, cfg Config) ProbeResult {
	switch cfg.Strategy {
	case StrategyPlatformPriority:
		return best(eligible, func(a, b ProbeResult) bool {
			return a.Score.PlatformScore > b.Score.PlatformScore
		})
	case StrategyPerformance:
		return best(eligible, func(a, b ProbeResult) bool {
			return a.Score.PerformanceScore > b.Score.PerformanceScore
		})
	case StrategyLowestMemory:
		return best(eligible, func(a, b ProbeResult) bool {
			return a.DedicatedMemoryMB < b.DedicatedMemoryMB
		})
	case StrategyLowPower:
		return best(eligible, func(a, b ProbeResult) bool {
			if lowPower(a.Family) != lowPower(b.Family) {
				return lowPower(a.Family)
			}
			return a.DedicatedMemoryMB < b.DedicatedMemoryMB
		})
	case StrategyCompatibility:
		return best(eligible, func(a, b ProbeResult) bool {
			if pa, pb := platformBreadth(a.Family), platformBreadth(b.Family); pa != pb {
				return pa > pb
			}
			return a.Score.StabilityScore > b.Score.StabilityScore
		})
	case StrategyFirstMatch:
		return firstInChain(eligible, cfg.FallbackChain)
	case StrategyCustom:
		if cfg.Compare != nil {
			sorted := make([]ProbeResult, len(eligible))
			copy(sorted, eligible)
			sort.SliceStable(sorted, func(i, j int) bool {
				if c := cfg.Compare(sorted[i], sorted[j]); c != 0 {
					return c < 0
				}
				return tieBreak(sorted[i], sorted[j])
			})
			return sorted[0]
		}
		fallthrough
	case StrategyHighestScore:
		fallthrough
	default:
		return best(eligible, func(a, b ProbeResult) bool {
			return a.Score.Total > b.Score.Total
		})
	}
}

// best returns the probe ranked first by less, with deterministic ties.
func best(results []ProbeResult, less func(a, b ProbeResult) bool) ProbeResult {
	winner := results[0]
	for _, r := range results[1:] {
		if less(r, winner) {
			winner = r
		} else if !less(winner, r) && tieBreak(r, winner) {
			winner = r
		}
	}
	return winner
}

// tieBreak orders a before b by total score, then family declaration order.
func tieBreak(a, b ProbeResult) bool {
	if a.Score != nil && b.Score != nil && a.Score.Total != b.Score.Total {
		return a.Score.Total > b.Score.Total
	}
	return a.Family.Index() < b.Family.Index()
}

// firstInChain returns the first eligible probe in fallback chain order.
func firstInChain(eligible []ProbeResult, chain []backend.Family) ProbeResult {
	byFamily := make(map[backend.Family]ProbeResult, len(eligible))
	for _, r := range eligible {
		byFamily[r.Family] = r
	}
	for _, f := range chain {
		if r, ok := byFamily[f]; ok {
			return r
		}
	}
	// Preferred-only candidate set; fall back to highest total.
	return best(eligible, func(a, b ProbeResult) bool {
		return a.Score.Total > b.Score.Total
	})
}

func lowPower(f backend.Family) bool {
	info, ok := f.Info()
	return ok && info.LowPower
}

func platformBreadth(f backend.Family) int {
	info, ok := f.Info()
	if !ok {
		return 0
	}
	return len(info.Platforms)
}
