package model

import "sort"

// ComputeStreak returns the current and longest runs of consecutive reading
// days. Dates after today are ignored. The current run has to end today or
// yesterday, a day without a log yet does not break it until it is over.
func ComputeStreak(dates []Date, today Date) (current, longest int) {
	days := make([]Date, 0, len(dates))
	seen := map[Date]bool{}
	for _, d := range dates {
		if d.IsZero() || d.After(today) || seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	if len(days) == 0 {
		return 0, 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].DaysSince(days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	last := days[len(days)-1]
	if today.DaysSince(last) > 1 {
		return 0, longest
	}
	// run now holds the length of the run ending at last
	return run, longest
}
