package monitor

import "fmt"

// Participation bands, strictest first. Flag nesting is the invariant:
// belowTwoThirds ⇒ below70 ⇒ below80 ⇒ below90.
var bands = []struct {
	threshold float64
	label     string
}{
	{threshold: 2.0 / 3.0, label: "2/3 (finality at risk)"},
	{threshold: 0.70, label: "70%"},
	{threshold: 0.80, label: "80%"},
	{threshold: 0.90, label: "90%"},
}

// Hysteresis tracks which participation bands have been crossed so each
// threshold alerts once per direction.
type Hysteresis struct {
	below [4]bool
}

// Evaluate updates band flags against the completed-epoch rate. After every
// call, flag(t) holds exactly when rate < t, so a multi-band move in either
// direction settles in one step. At most one message is returned: the
// strictest newly-crossed threshold on the way down, or the strictest
// newly-cleared one on the way up.
func (h *Hysteresis) Evaluate(rate float64) (string, bool) {
	strictestSet := -1
	strictestCleared := -1

	for i, band := range bands {
		shouldBeBelow := rate < band.threshold
		switch {
		case shouldBeBelow && !h.below[i]:
			if strictestSet == -1 {
				strictestSet = i
			}
		case !shouldBeBelow && h.below[i]:
			if strictestCleared == -1 {
				strictestCleared = i
			}
		}
		h.below[i] = shouldBeBelow
	}

	if strictestSet >= 0 {
		return fmt.Sprintf("🚨 Participation dropped below %s: %.2f%%", bands[strictestSet].label, rate*100), true
	}
	if strictestCleared >= 0 {
		return fmt.Sprintf("✅ Participation recovered above %s: %.2f%%", bands[strictestCleared].label, rate*100), true
	}
	return "", false
}

// Snapshot exposes the band flags, strictest first.
func (h *Hysteresis) Snapshot() (belowTwoThirds, below70, below80, below90 bool) {
	return h.below[0], h.below[1], h.below[2], h.below[3]
}
