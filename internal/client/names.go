package client

import "math/rand/v2"

var (
	adjectives = []string{
		"Neon", "Turbo", "Flash", "Cyber", "Pixel", "Blaze", "Swift", "Hyper",
		"Quick", "Rapid", "Storm", "Volt", "Nitro", "Mega", "Ultra", "Sonic",
	}
	nouns = []string{
		"Ninja", "Typist", "Runner", "Racer", "Fox", "Wolf", "Hawk", "Tiger",
		"Wizard", "Phantom", "Ghost", "Shadow", "Spark", "Bolt", "Dash", "Blitz",
	}
)

// RandomName returns a display name like "TurboFox".
func RandomName() string {
	return adjectives[rand.IntN(len(adjectives))] + nouns[rand.IntN(len(nouns))]
}
