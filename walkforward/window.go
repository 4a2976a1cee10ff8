package walkforward

import (
	"fmt"
	"time"
)

// Window represents one walk-forward train/test window pair. The test window
// starts the day after the training window ends.
type Window struct {
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// String returns a human readable representation of the window.
func (w Window) String() string {
	const layout = "2006-01-02"
	return fmt.Sprintf("train %s..%s test %s..%s",
		w.TrainStart.Format(layout), w.TrainEnd.Format(layout),
		w.TestStart.Format(layout), w.TestEnd.Format(layout))
}

// Windows slices the date range [start, end] into consecutive walk-forward
// windows. Starting at the range minimum, successive windows advance by
// stepYears; a window is emitted only if its test end does not exceed the
// range maximum. A range spanning less than trainYears+testYears produces no
// windows, which is not an error.
func Windows(start time.Time, end time.Time, trainYears int, testYears int, stepYears int) []Window {
	if trainYears <= 0 || testYears <= 0 || stepYears <= 0 {
		return nil
	}
	if start.IsZero() || end.IsZero() || start.After(end) {
		return nil
	}

	windows := []Window{}
	for trainStart := start; ; trainStart = trainStart.AddDate(stepYears, 0, 0) {
		trainEnd := trainStart.AddDate(trainYears, 0, -1)
		testStart := trainEnd.AddDate(0, 0, 1)
		testEnd := testStart.AddDate(testYears, 0, 0)
		if testEnd.After(end) {
			break
		}

		windows = append(windows, Window{
			TrainStart: trainStart,
			TrainEnd:   trainEnd,
			TestStart:  testStart,
			TestEnd:    testEnd,
		})
	}

	return windows
}
