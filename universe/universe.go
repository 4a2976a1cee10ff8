// Package universe holds the tradable ticker universes and the stratified
// sampling used to pick learn and out of sample ticker sets.
package universe

import (
	"math/rand"
	"sort"
	"strings"
)

// usCore and jpCore are the core US and JP tickers of the master universe.
var usCore = []string{
	"SPY", "QQQ", "DIA", "IWM",
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NFLX",
	"NVDA", "AMD", "AVGO", "TSM", "ASML", "INTC", "QCOM", "MU", "ARM",
	"SMCI", "PLTR", "SNOW", "CRM", "ADBE", "ORCL", "SHOP",
}

var jpCore = []string{
	"7203.T", "6758.T", "9984.T", "8035.T", "6954.T", "4063.T", "7735.T", "6920.T", "6857.T",
	"4523.T", "6501.T", "9432.T", "9433.T", "9434.T", "2914.T", "4502.T", "3382.T",
	"8306.T", "8316.T", "8411.T", "8591.T",
}

// usAI and jpAI are the AI heavy subsets of the universe.
var usAI = []string{
	"NVDA", "AMD", "AVGO", "MSFT", "GOOGL", "META", "AMZN", "TSM", "ASML", "ARM",
	"PLTR", "SNOW", "SMCI", "CRM", "ADBE",
}

var jpAI = []string{
	"8035.T", "6920.T", "6857.T", "7735.T", "9984.T", "6758.T", "4063.T", "6526.T", "6619.T",
}

// dedupeSorted merges ticker lists into a sorted set.
func dedupeSorted(lists ...[]string) []string {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, ticker := range list {
			ticker = strings.TrimSpace(ticker)
			if ticker != "" {
				set[ticker] = struct{}{}
			}
		}
	}

	merged := make([]string, 0, len(set))
	for ticker := range set {
		merged = append(merged, ticker)
	}
	sort.Strings(merged)

	return merged
}

// Master returns the master universe, optionally extended with extra tickers.
func Master(extra []string) []string {
	return dedupeSorted(usCore, jpCore, extra)
}

// AI returns the AI universe, optionally extended with extra tickers.
func AI(extra []string) []string {
	return dedupeSorted(usAI, jpAI, extra)
}

// Split partitions the master universe into its non-AI and AI halves.
func Split(extra []string) ([]string, []string) {
	master := Master(extra)
	ai := AI(nil)

	aiSet := make(map[string]struct{}, len(ai))
	for _, ticker := range ai {
		aiSet[ticker] = struct{}{}
	}

	nonAI := make([]string, 0, len(master))
	for _, ticker := range master {
		if _, ok := aiSet[ticker]; !ok {
			nonAI = append(nonAI, ticker)
		}
	}

	return nonAI, ai
}

// StratifyCountry groups tickers by country, using the Tokyo exchange suffix
// to distinguish JP listings from US ones.
func StratifyCountry(tickers []string) map[string][]string {
	strata := map[string][]string{"JP": {}, "US": {}}
	for _, ticker := range tickers {
		if strings.HasSuffix(ticker, ".T") {
			strata["JP"] = append(strata["JP"], ticker)
		} else {
			strata["US"] = append(strata["US"], ticker)
		}
	}
	return strata
}

// StratifiedSample picks up to size tickers, alternating between country
// strata so both markets stay represented, then topping up from the leftover
// pool. The provided seed makes the sample reproducible.
func StratifiedSample(tickers []string, size int, seed int64) []string {
	if size <= 0 || len(tickers) == 0 {
		return []string{}
	}

	rng := rand.New(rand.NewSource(seed))
	strata := StratifyCountry(tickers)
	keys := []string{"JP", "US"}

	picked := make([]string, 0, size)
	pickedSet := make(map[string]struct{}, size)

	for len(picked) < size {
		progressed := false
		for _, key := range keys {
			group := strata[key]
			if len(group) == 0 {
				continue
			}

			idx := rng.Intn(len(group))
			ticker := group[idx]
			strata[key] = append(group[:idx], group[idx+1:]...)
			progressed = true

			if _, ok := pickedSet[ticker]; !ok {
				picked = append(picked, ticker)
				pickedSet[ticker] = struct{}{}
			}
			if len(picked) >= size {
				break
			}
		}
		if !progressed {
			break
		}
	}

	return picked
}
