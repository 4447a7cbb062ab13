package analysis

import "sort"

// Comparison is the effect of the bypass relative to the baseline.
type Comparison struct {
	Baseline Summary
	Bypass   Summary

	SavingsEUR       float64
	SavingsPct       float64
	GasReductionMWh  float64
	CurtailmentDelta float64
}

func Compare(baseline, bypass Summary) Comparison {
	c := Comparison{
		Baseline:         baseline,
		Bypass:           bypass,
		SavingsEUR:       baseline.Objective - bypass.Objective,
		GasReductionMWh:  baseline.GasMWh - bypass.GasMWh,
		CurtailmentDelta: baseline.CurtailedMWh - bypass.CurtailedMWh,
	}
	if baseline.Objective != 0 {
		c.SavingsPct = 100 * c.SavingsEUR / baseline.Objective
	}
	return c
}

type RankedSummary struct {
	Rank int
	Summary
}

// RankByCost orders summaries by objective ascending, ties broken by network name.
func RankByCost(summaries []Summary) []RankedSummary {
	out := make([]RankedSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, RankedSummary{Summary: s})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Objective != out[j].Objective {
			return out[i].Objective < out[j].Objective
		}
		return out[i].Network < out[j].Network
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
