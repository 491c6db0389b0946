// Package evaluation scores a participant's group-discussion performance
// from their participation counters. Pure functions, no state.
package evaluation

// ParticipantStats are the counters the client accumulates during a
// session.
type ParticipantStats struct {
	UserID          string `json:"userId"`
	SpeakingTurns   int    `json:"speakingTurns"`
	SpeakingTimeMs  int64  `json:"speakingTimeMs"`
	FillerWordCount int    `json:"fillerWordCount"`
	WordCount       int    `json:"wordCount"`
}

// Report holds the per-dimension scores on a 0-10 scale and their mean.
type Report struct {
	Participation float64 `json:"participation"`
	Confidence    float64 `json:"confidence"`
	Fluency       float64 `json:"fluency"`
	Vocabulary    float64 `json:"vocabulary"`
	FinalScore    float64 `json:"finalScore"`
}

// Evaluate maps the raw counters to clamped dimension scores:
// one point per speaking turn, one per minute of speaking time, ten minus
// the filler-word count, and one per twenty words.
func Evaluate(s ParticipantStats) Report {
	participation := min(10, float64(s.SpeakingTurns))
	confidence := min(10, float64(s.SpeakingTimeMs)/60000)
	fluency := max(0, 10-float64(s.FillerWordCount))
	vocabulary := min(10, float64(s.WordCount)/20)

	return Report{
		Participation: participation,
		Confidence:    confidence,
		Fluency:       fluency,
		Vocabulary:    vocabulary,
		FinalScore:    (participation + confidence + fluency + vocabulary) / 4,
	}
}
