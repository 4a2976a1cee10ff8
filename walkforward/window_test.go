package walkforward

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()

	dt, err := time.Parse("2006-01-02", value)
	assert.NoError(t, err)

	return dt
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name       string
		start      string
		end        string
		trainYears int
		testYears  int
		stepYears  int
		want       int
	}{
		{
			name:       "seven years with annual step",
			start:      "2015-01-01",
			end:        "2022-01-01",
			trainYears: 5,
			testYears:  1,
			stepYears:  1,
			want:       2,
		},
		{
			name:       "exactly one window",
			start:      "2015-01-01",
			end:        "2021-01-01",
			trainYears: 5,
			testYears:  1,
			stepYears:  1,
			want:       1,
		},
		{
			name:       "range one day short of a window",
			start:      "2015-01-01",
			end:        "2020-12-31",
			trainYears: 5,
			testYears:  1,
			stepYears:  1,
			want:       0,
		},
		{
			name:       "two year step",
			start:      "2010-01-01",
			end:        "2020-01-01",
			trainYears: 5,
			testYears:  1,
			stepYears:  2,
			want:       3,
		},
		{
			name:       "inverted range",
			start:      "2022-01-01",
			end:        "2015-01-01",
			trainYears: 5,
			testYears:  1,
			stepYears:  1,
			want:       0,
		},
		{
			name:       "non-positive step",
			start:      "2015-01-01",
			end:        "2022-01-01",
			trainYears: 5,
			testYears:  1,
			stepYears:  0,
			want:       0,
		},
	}

	for _, test := range tests {
		windows := Windows(day(t, test.start), day(t, test.end),
			test.trainYears, test.testYears, test.stepYears)
		if len(windows) != test.want {
			t.Errorf("%s: expected %d windows, got %d", test.name, test.want, len(windows))
		}
	}
}

func TestWindowsAdjacency(t *testing.T) {
	windows := Windows(day(t, "2015-01-01"), day(t, "2022-01-01"), 5, 1, 1)
	assert.Equal(t, len(windows), 2)

	first := windows[0]
	assert.Equal(t, first.TrainStart, day(t, "2015-01-01"))
	assert.Equal(t, first.TrainEnd, day(t, "2019-12-31"))
	assert.Equal(t, first.TestStart, day(t, "2020-01-01"))
	assert.Equal(t, first.TestEnd, day(t, "2021-01-01"))

	for _, window := range windows {
		// The test window must begin exactly one day after training ends.
		assert.Equal(t, window.TestStart, window.TrainEnd.AddDate(0, 0, 1))
		assert.True(t, window.TrainEnd.After(window.TrainStart))
		assert.True(t, window.TestEnd.After(window.TestStart))
	}

	second := windows[1]
	assert.Equal(t, second.TrainStart, first.TrainStart.AddDate(1, 0, 0))
}
