package domain

import "time"

// AlertEvaluator decides whether a new price sample is anomalous
// Implementations must be a pure function of (sample, history): no hidden state beyond
// what they are constructed with. history holds the samples preceding sample, oldest first.
type AlertEvaluator interface {
	Evaluate(sample PriceSample, history []PriceSample) bool
}

// AlertEvaluatorFunc adapts a plain function to the AlertEvaluator interface
type AlertEvaluatorFunc func(sample PriceSample, history []PriceSample) bool

// Evaluate calls f(sample, history)
func (f AlertEvaluatorFunc) Evaluate(sample PriceSample, history []PriceSample) bool {
	return f(sample, history)
}

// AlertState represents the current alert flag shown to the user
type AlertState struct {
	Active   bool
	RaisedAt time.Time   // Zero when not active
	Trigger  PriceSample // Sample that raised the alert
}

// Raise marks the alert active for the given sample
// A sticky alert that is already active keeps its original trigger
func (a *AlertState) Raise(sample PriceSample, at time.Time) bool {
	if a.Active {
		return false
	}
	a.Active = true
	a.RaisedAt = at
	a.Trigger = sample
	return true
}

// Clear resets the alert to inactive
func (a *AlertState) Clear() {
	*a = AlertState{}
}
