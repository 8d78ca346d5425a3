// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package metric

import "go.opentelemetry.io/otel/metric"

// TrackerMetric groups the OpenTelemetry instruments describing the state
// tracker.
//
// Instruments:
//   - tracker.saves.count     (Int64Counter) per service and outcome
//   - tracker.loads.count     (Int64Counter) per service and outcome
//   - tracker.flush.duration  (Float64Histogram, unit: seconds)
//   - tracker.dirty.count     (Int64ObservableGauge)
type TrackerMetric struct {
	savesCount    metric.Int64Counter
	loadsCount    metric.Int64Counter
	flushDuration metric.Float64Histogram
	dirtyCount    metric.Int64ObservableGauge
}

// NewTrackerMetric creates the tracker instruments using the provided Meter.
// It returns an error if any instrument cannot be created.
func NewTrackerMetric(meter metric.Meter) (*TrackerMetric, error) {
	var instruments TrackerMetric
	var err error

	if instruments.savesCount, err = meter.Int64Counter(
		"tracker.saves.count",
		metric.WithDescription("Total number of service state saves"),
	); err != nil {
		return nil, err
	}

	if instruments.loadsCount, err = meter.Int64Counter(
		"tracker.loads.count",
		metric.WithDescription("Total number of service state loads"),
	); err != nil {
		return nil, err
	}

	if instruments.flushDuration, err = meter.Float64Histogram(
		"tracker.flush.duration",
		metric.WithDescription("Duration of a flush of every dirty service"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if instruments.dirtyCount, err = meter.Int64ObservableGauge(
		"tracker.dirty.count",
		metric.WithDescription("Number of services waiting for a flush"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}

// SavesCount returns the counter of service saves
func (x *TrackerMetric) SavesCount() metric.Int64Counter {
	return x.savesCount
}

// LoadsCount returns the counter of service loads
func (x *TrackerMetric) LoadsCount() metric.Int64Counter {
	return x.loadsCount
}

// FlushDuration returns the histogram of flush durations
func (x *TrackerMetric) FlushDuration() metric.Float64Histogram {
	return x.flushDuration
}

// DirtyCount returns the gauge reporting the size of the dirty set.
//
// Use with Meter.RegisterCallback to observe the current value periodically.
func (x *TrackerMetric) DirtyCount() metric.Int64ObservableGauge {
	return x.dirtyCount
}
