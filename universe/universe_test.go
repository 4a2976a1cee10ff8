package universe

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func TestMaster(t *testing.T) {
	master := Master(nil)

	assert.In(t, "AAPL", master)
	assert.In(t, "7203.T", master)

	// The universe is a sorted set.
	seen := make(map[string]struct{}, len(master))
	for idx, ticker := range master {
		if _, ok := seen[ticker]; ok {
			t.Errorf("duplicate ticker %s", ticker)
		}
		seen[ticker] = struct{}{}

		if idx > 0 && master[idx-1] >= ticker {
			t.Errorf("universe not sorted at %s", ticker)
		}
	}

	// Extras merge in, blanks and duplicates drop out.
	extended := Master([]string{"ZZZZ", " ", "AAPL"})
	assert.Equal(t, len(extended), len(master)+1)
	assert.In(t, "ZZZZ", extended)
}

func TestSplit(t *testing.T) {
	nonAI, ai := Split(nil)

	assert.In(t, "NVDA", ai)
	assert.In(t, "SPY", nonAI)

	// The halves are disjoint.
	aiSet := make(map[string]struct{}, len(ai))
	for _, ticker := range ai {
		aiSet[ticker] = struct{}{}
	}
	for _, ticker := range nonAI {
		if _, ok := aiSet[ticker]; ok {
			t.Errorf("%s present in both halves", ticker)
		}
	}
}

func TestStratifyCountry(t *testing.T) {
	strata := StratifyCountry([]string{"AAPL", "7203.T", "SPY", "8035.T"})

	wantJP := []string{"7203.T", "8035.T"}
	wantUS := []string{"AAPL", "SPY"}
	if diff := cmp.Diff(wantJP, strata["JP"]); diff != "" {
		t.Errorf("unexpected JP stratum (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantUS, strata["US"]); diff != "" {
		t.Errorf("unexpected US stratum (-want +got):\n%s", diff)
	}
}

func TestStratifiedSample(t *testing.T) {
	tickers := Master(nil)

	sample := StratifiedSample(tickers, 8, 42)
	assert.Equal(t, len(sample), 8)

	// Both markets stay represented.
	var jp, us int
	for _, ticker := range sample {
		if strings.HasSuffix(ticker, ".T") {
			jp++
		} else {
			us++
		}
	}
	assert.GreaterThan(t, jp, 0)
	assert.GreaterThan(t, us, 0)

	// The same seed reproduces the same sample.
	again := StratifiedSample(tickers, 8, 42)
	if diff := cmp.Diff(sample, again); diff != "" {
		t.Errorf("sample not reproducible (-want +got):\n%s", diff)
	}

	// A different seed draws a different sample.
	other := StratifiedSample(tickers, 8, 43)
	if cmp.Diff(sample, other) == "" {
		t.Error("expected a different sample for a different seed")
	}
}

func TestStratifiedSampleBounds(t *testing.T) {
	assert.Equal(t, StratifiedSample(nil, 5, 1), []string{})
	assert.Equal(t, StratifiedSample([]string{"AAPL"}, 0, 1), []string{})

	// Requesting more than available returns everything once.
	sample := StratifiedSample([]string{"AAPL", "7203.T"}, 10, 1)
	assert.Equal(t, len(sample), 2)
}
