package phase

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoRemainingWeight indicates no schedulable weight remains from the
// requested starting index.
var ErrNoRemainingWeight = errors.New("no remaining phase weight to allocate")

// Allocate distributes totalMinutes across the table's phases from index
// from onward, proportionally to each phase's weight. End times are
// cumulative starting at start; the final deadline lands exactly at
// start + totalMinutes.
//
// Allocate is re-invoked on resume with a shifted starting index so phases
// that already elapsed keep their historical deadlines; it never produces
// entries for phases before the starting index.
func Allocate(start time.Time, totalMinutes int, table Table, from int) ([]Deadline, error) {
	if totalMinutes <= 0 {
		return nil, fmt.Errorf("total minutes must be greater than zero")
	}
	if from < 0 {
		from = 0
	}
	if from >= len(table) {
		return nil, ErrNoRemainingWeight
	}

	remaining := table[from:]
	var totalWeight float64
	for _, def := range remaining {
		if def.Weight > 0 {
			totalWeight += def.Weight
		}
	}
	if totalWeight <= 0 {
		return nil, ErrNoRemainingWeight
	}

	budget := time.Duration(totalMinutes) * time.Minute
	deadlines := make([]Deadline, 0, len(remaining))
	var cumulative float64
	for _, def := range remaining {
		if def.Weight <= 0 {
			continue
		}
		cumulative += def.Weight
		offset := time.Duration(cumulative / totalWeight * float64(budget))
		deadlines = append(deadlines, Deadline{
			Phase:  def.Name,
			EndsAt: start.Add(offset),
		})
	}
	return deadlines, nil
}
