package guard

import (
	"fmt"

	"github.com/contextfold/contextfold/pkg/window"
)

// QualityReport is the outcome of validating one compaction.
type QualityReport struct {
	OK             bool
	Issues         []string
	TokensBefore   int
	TokensAfter    int
	TokenReduction float64
}

// QualityValidator judges whether a compaction pass left the history in a
// usable state. Violations are reported, never thrown; the caller decides
// whether to roll back via the recovery manager.
type QualityValidator struct {
	cfg QualityConfig
}

// NewQualityValidator builds a validator over merged config.
func NewQualityValidator(cfg QualityConfig) *QualityValidator {
	return &QualityValidator{cfg: cfg}
}

// ValidateCompaction compares the history before and after a compaction and
// collects every violation found.
func (v *QualityValidator) ValidateCompaction(before, after []window.Message) QualityReport {
	report := QualityReport{}
	report.TokensBefore, _ = window.HistoryTokens(before, nil)
	report.TokensAfter, _ = window.HistoryTokens(after, nil)

	if len(after) == 0 && len(before) > 0 {
		report.Issues = append(report.Issues, "compaction emptied the history")
	}

	// Orphan check: a compaction must not create tool invocations whose
	// results are gone, or vice versa.
	if introduced := orphanCount(after) - orphanCount(before); introduced > 0 {
		report.Issues = append(report.Issues,
			fmt.Sprintf("compaction introduced %d orphaned tool call(s)", introduced))
	}

	if lost := missingSummaries(before, after); len(lost) > 0 {
		report.Issues = append(report.Issues,
			fmt.Sprintf("compaction dropped %d prior summary message(s)", len(lost)))
	}

	if report.TokensBefore > 0 {
		report.TokenReduction = 1 - float64(report.TokensAfter)/float64(report.TokensBefore)
		if report.TokenReduction < v.cfg.MinTokenReduction {
			report.Issues = append(report.Issues,
				fmt.Sprintf("token reduction %.1f%% below the %.1f%% floor",
					report.TokenReduction*100, v.cfg.MinTokenReduction*100))
		}
	}

	if share := summaryShare(after); share > v.cfg.MaxSummaryShare {
		report.Issues = append(report.Issues,
			fmt.Sprintf("summaries make up %.0f%% of the compacted history", share*100))
	}

	report.OK = len(report.Issues) == 0
	return report
}

func orphanCount(messages []window.Message) int {
	analysis := window.AnalyzeToolPairs(messages)
	orphans := len(analysis.Unpaired)
	// Results whose invocation is gone do not appear in Unpaired; count
	// them separately.
	known := make(map[string]bool, len(analysis.Pairs))
	for id := range analysis.Pairs {
		known[id] = true
	}
	for i := range messages {
		for _, id := range messages[i].ToolResultIDs() {
			if !known[id] {
				orphans++
			}
		}
	}
	return orphans
}

func missingSummaries(before, after []window.Message) []string {
	present := make(map[string]bool)
	for i := range after {
		if after[i].IsSummary {
			present[after[i].ID] = true
		}
	}
	var lost []string
	for i := range before {
		if before[i].IsSummary && !present[before[i].ID] {
			lost = append(lost, before[i].ID)
		}
	}
	return lost
}

func summaryShare(messages []window.Message) float64 {
	if len(messages) == 0 {
		return 0
	}
	summaries := 0
	for i := range messages {
		if messages[i].IsSummary {
			summaries++
		}
	}
	return float64(summaries) / float64(len(messages))
}
