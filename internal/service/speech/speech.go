// Package speech provides the text-to-speech capability the pipeline invokes
// after a successful assistant turn. Synthesis is strictly best-effort; a
// failure is logged by the caller and never surfaces as a conversation error.
package speech

import "context"

// Synthesizer renders text as audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Noop satisfies Synthesizer when no speech credentials are configured.
type Noop struct{}

// Synthesize discards the text.
func (Noop) Synthesize(context.Context, string) ([]byte, error) {
	return nil, nil
}
