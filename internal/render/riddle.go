package render

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
)

type RiddleEntry struct {
	Question string
	Answer   string
}

var riddles = []RiddleEntry{
	{"What has an eye, but cannot see?", "A needle"},
	{"What is full of holes but still holds water?", "A sponge"},
	{"What has hands, but can't clap?", "A clock"},
	{"What has a neck, but no head?", "A bottle"},
	{"What gets wetter as it dries?", "A towel"},
	{"What has to be broken before you can use it?", "An egg"},
	{"I'm tall when I'm young, and I'm short when I'm old. What am I?", "A candle"},
	{"What month of the year has 28 days?", "All of them"},
	{"The more of me you take, the more you leave behind. What am I?", "Footsteps"},
	{"What goes up but never comes down?", "Your age"},
	{"What has a thumb and four fingers, but is not a hand?", "A glove"},
	{"What is always in front of you but can't be seen?", "The future"},
	{"What can you catch, but not throw?", "A cold"},
	{"David's parents have three sons: Snap, Crackle, and what's the name of the third son?", "David"},
	{"I have cities, but no houses. I have mountains, but no trees. I have water, but no fish. What am I?", "A map"},
	{"What has one head, one foot, and four legs?", "A bed"},
	{"What building has the most stories?", "A library"},
	{"What is cut on a table, but is never eaten?", "A deck of cards"},
	{"What kind of band never plays music?", "A rubber band"},
	{"What can you hold in your left hand but not in your right?", "Your right elbow"},
	{"What is so fragile that saying its name breaks it?", "Silence"},
	{"What comes once in a minute, twice in a moment, but never in a thousand years?", "The letter 'M'"},
	{"What runs all around a backyard, yet never moves?", "A fence"},
	{"What can fill a room but takes up no space?", "Light"},
	{"If you drop me I'm sure to crack, but give me a smile and I'll always smile back. What am I?", "A mirror"},
	{"What has words, but never speaks?", "A book"},
	{"I have keys, but open no doors. I have a space, but no room. You can enter, but can't go outside. What am I?", "A keyboard"},
	{"I am an odd number. Take away a letter and I become even. What number am I?", "Seven"},
	{"What can run but never walks, has a mouth but never talks, has a head but never weeps, has a bed but never sleeps?", "A river"},
	{"What has an endless supply of letters, but starts empty?", "A postbox/mailbox"},
	{"If you have me, you want to share me. If you share me, you haven't got me. What am I?", "A secret"},
	{"The more you have of it, the less you see. What is it?", "Darkness"},
	{"What invention lets you look right through a wall?", "A window"},
	{"What is it that you have that other people use more than you do?", "Your name"},
	{"What has a face and two hands but no arms or legs?", "A clock"},
	{"I speak without a mouth and hear without ears. I have no body, but I come alive with wind. What am I?", "An echo"},
	{"You see a boat filled with people. It has not sunk, but when you look again you don't see a single person on the boat. Why?", "All the people were married."},
	{"The person who makes it, sells it. The person who buys it never uses it. The person who uses it never knows they're using it. What is it?", "A coffin"},
	{"What can travel around the world while staying in a corner?", "A stamp"},
	{"I have no voice, but I can tell you stories. I have no legs, but I can take you to distant lands. What am I?", "A book"},
	{"What is always coming but never arrives?", "Tomorrow"},
	{"What has to be broken before you can use it?", "A promise"},
	{"What can be measured, but has no length, width, or height?", "Temperature"},
	{"A man is looking at a portrait. Someone asks him whose portrait he is looking at. He replies, 'Brothers and sisters I have none, but that man's father is my father's son.' Who is in the portrait?", "His son"},
	{"Forward I am heavy, but backward I am not. What am I?", "The word 'ton'"},
	{"I am the beginning of the end, and the end of time and space. I am essential to creation, and I surround every place. What am I?", "The letter 'E'"},
	{"What is greater than God, more evil than the devil, the poor have it, the rich need it, and if you eat it, you'll die?", "Nothing"},
	{"Two in a corner, one in a room, zero in a house, but one in a shelter. What am I?", "The letter 'R'"},
	{"What appears once in a year, twice in a week, but never in a day?", "The letter 'E'"},
	{"What five-letter word becomes shorter when you add two letters to it?", "Short"},
}

// RiddleWidget prints a riddle to w while a submission is slow. It satisfies
// riddle.Widget.
type RiddleWidget struct {
	mu      sync.Mutex
	w       io.Writer
	pick    func(n int) int
	showing bool
}

func NewRiddleWidget(w io.Writer) *RiddleWidget {
	return &RiddleWidget{w: w, pick: rand.IntN}
}

func (r *RiddleWidget) Show() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.showing {
		return
	}
	r.showing = true
	fmt.Fprintln(r.w, Riddle(riddles[r.pick(len(riddles))]))
}

func (r *RiddleWidget) Hide() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showing = false
}

func (r *RiddleWidget) Showing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showing
}
