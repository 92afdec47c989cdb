package chat

import "testing"

func TestLocalReply(t *testing.T) {
	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"hi", GreetingReply, true},
		{"  HeLLo ", GreetingReply, true},
		{"Greetings", GreetingReply, true},
		{"see ya", FarewellReply, true},
		{"Take Care", FarewellReply, true},
		{"cya\n", FarewellReply, true},
		{"hello there", "", false},
		{"what is the total?", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := LocalReply(tt.query)
		if ok != tt.ok || got != tt.want {
			t.Errorf("LocalReply(%q) = %q, %v; want %q, %v", tt.query, got, ok, tt.want, tt.ok)
		}
	}
}
