package core

import "settlements/internal/month"

// MonthSummary aggregates the settlements filed under one month.
type MonthSummary struct {
	Month        month.Key
	Count        int
	Pending      int
	Settled      int
	PendingTotal Money
	SettledTotal Money
}

// Summarize folds settlements into a MonthSummary for k. Settlements from
// other months are ignored.
func Summarize(k month.Key, items []Settlement) MonthSummary {
	sum := MonthSummary{Month: k}
	for _, s := range items {
		if s.MonthKey() != k {
			continue
		}
		sum.Count++
		if s.IsSettled() {
			sum.Settled++
			sum.SettledTotal.Pence += s.Amount.Pence
		} else {
			sum.Pending++
			sum.PendingTotal.Pence += s.Amount.Pence
		}
	}
	return sum
}
