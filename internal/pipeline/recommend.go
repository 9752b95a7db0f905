package pipeline

import (
	_ "embed"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/presenca/discovery-audit/internal/model"
)

//go:embed rules.yaml
var rulesYAML []byte

type ruleTable struct {
	Rules map[string]ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Action   string `yaml:"action"`
	Priority string `yaml:"priority"`
	Impact   int    `yaml:"impact"`
	Effort   string `yaml:"effort"`
	Category string `yaml:"category"`
	Detail   string `yaml:"detail"`
}

var rules = loadRules()

func loadRules() map[string]ruleEntry {
	var table ruleTable
	if err := yaml.Unmarshal(rulesYAML, &table); err != nil {
		panic("pipeline: invalid embedded rule table: " + err.Error())
	}
	return table.Rules
}

var priorityRank = map[string]int{"high": 0, "medium": 1, "low": 2}

// BuildRecommendations turns the audit findings into a prioritized action
// list: one recommendation per competitive gap type, plus profile and
// sentiment findings, deduplicated by rule.
func BuildRecommendations(b *model.Business, gaps []model.CompetitorGap, sentiment *model.SentimentAnalysis) []model.Recommendation {
	seen := make(map[string]bool)
	var recs []model.Recommendation

	add := func(key string) {
		rule, ok := rules[key]
		if !ok || seen[key] {
			return
		}
		seen[key] = true
		recs = append(recs, model.Recommendation{
			Action:   rule.Action,
			Priority: rule.Priority,
			Impact:   rule.Impact,
			Effort:   rule.Effort,
			Category: rule.Category,
			Detail:   rule.Detail,
		})
	}

	for _, gap := range gaps {
		add(string(gap.Type))
	}

	if b.Description == "" || len(b.Hours) == 0 {
		add("completeness")
	}
	if b.PhotosCount == 0 {
		add("photos")
	}
	if sentiment != nil {
		for _, g := range sentiment.Gaps {
			if g.Status != model.SentimentValidated {
				add("sentiment")
				break
			}
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		pi, pj := priorityRank[recs[i].Priority], priorityRank[recs[j].Priority]
		if pi != pj {
			return pi < pj
		}
		return recs[i].Impact > recs[j].Impact
	})
	return recs
}
