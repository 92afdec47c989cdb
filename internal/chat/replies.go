package chat

import "strings"

const (
	GreetingReply = "Hello! How can I help you with your document today?"
	FarewellReply = "Goodbye! Feel free to return if you have more questions."
)

var greetings = map[string]bool{
	"hi":        true,
	"hey":       true,
	"hello":     true,
	"yo":        true,
	"sup":       true,
	"howdy":     true,
	"greetings": true,
}

var farewells = map[string]bool{
	"bye":       true,
	"goodbye":   true,
	"see you":   true,
	"see ya":    true,
	"cya":       true,
	"farewell":  true,
	"take care": true,
}

// LocalReply returns the canned answer for a bare greeting or farewell.
// Matching is case-insensitive and ignores surrounding whitespace; anything
// else, including "hello there", goes to the backend.
func LocalReply(query string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	switch {
	case greetings[normalized]:
		return GreetingReply, true
	case farewells[normalized]:
		return FarewellReply, true
	}
	return "", false
}
