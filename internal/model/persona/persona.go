package persona

// Persona is a named system-instruction fragment shaping assistant tone.
type Persona struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	PromptPrefix string `json:"promptPrefix"`
}

// Seed provides the fixed persona catalog shipped with the product.
func Seed() []Persona {
	return []Persona{
		{
			ID:           "helpful",
			Label:        "Helpful Assistant",
			PromptPrefix: "You are helpful and concise.",
		},
		{
			ID:           "mentor",
			Label:        "Career Mentor",
			PromptPrefix: "You are a supportive career mentor. Focus on skills, roadmap, and practical steps.",
		},
		{
			ID:           "counselor",
			Label:        "Emotional Support",
			PromptPrefix: "You are empathetic and calm. Provide emotional support and safety suggestions.",
		},
		{
			ID:           "technical",
			Label:        "Technical Expert",
			PromptPrefix: "You are a technical expert. Provide clean code, explanations, and debugging steps.",
		},
	}
}
