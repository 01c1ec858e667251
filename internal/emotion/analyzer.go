package emotion

import "strings"

// keywordBuckets backs the heuristic classifier used when the provider does
// not return a usable classification. Scores are additive per hit.
var keywordBuckets = map[Label][]string{
	Happy: {
		"happy", "glad", "great", "awesome", "amazing", "wonderful", "thanks", "thank you",
		"love", "excited", "haha", "lol", ":)",
	},
	Sad: {
		"sad", "unhappy", "depressed", "lonely", "cry", "crying", "miserable", "hopeless",
		"upset", "heartbroken", "grief",
	},
	Anger: {
		"angry", "furious", "mad", "rage", "annoyed", "fed up", "hate", "pissed",
	},
	Fear: {
		"afraid", "scared", "terrified", "frightened", "worried sick", "threatened",
		"stalked", "unsafe", "in danger",
	},
	Panic: {
		"panic", "help me", "emergency", "can't breathe", "cant breathe", "sos",
		"call the police", "i'm going to die", "im going to die",
	},
	Calm: {
		"calm", "relaxed", "fine", "at ease", "peaceful", "all good", "no worries",
	},
}

// Analyze is the best-effort fallback classifier over a user utterance. It
// never fails; unscored text is neutral.
func Analyze(text string) Label {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Neutral
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	// Exclamation marks lean the score toward agitation rather than calm.
	if ex := strings.Count(text, "!"); ex > 1 {
		if scores[Panic] > 0 {
			scores[Panic] += ex
		}
		if scores[Anger] > 0 {
			scores[Anger] += ex
		}
	}

	best := Neutral
	bestScore := 0
	for label, s := range scores {
		if s > bestScore {
			bestScore = s
			best = label
		}
	}
	return best
}
