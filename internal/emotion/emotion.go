package emotion

import "strings"

// Label is one of the emotion classes the completion provider may report.
type Label string

const (
	Calm    Label = "calm"
	Happy   Label = "happy"
	Neutral Label = "neutral"
	Sad     Label = "sad"
	Fear    Label = "fear"
	Anger   Label = "anger"
	Panic   Label = "panic"
)

// Parse maps free text onto a known label.
func Parse(raw string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "calm":
		return Calm, true
	case "happy":
		return Happy, true
	case "neutral":
		return Neutral, true
	case "sad":
		return Sad, true
	case "fear":
		return Fear, true
	case "anger":
		return Anger, true
	case "panic":
		return Panic, true
	default:
		return "", false
	}
}

// IsDistress reports whether the label must raise an SOS alert.
func IsDistress(l Label) bool {
	return l == Fear || l == Panic
}
