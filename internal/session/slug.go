package session

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

var slugAdjectives = []string{
	"amber", "bold", "brave", "calm", "clever", "crisp", "eager",
	"fuzzy", "gentle", "happy", "keen", "lively", "lucky", "mellow",
	"nimble", "proud", "quick", "quiet", "rapid", "shiny", "silent",
	"sly", "smooth", "sunny", "swift", "tidy", "vivid", "warm", "wise",
}

var slugAnimals = []string{
	"badger", "bison", "crane", "dingo", "falcon", "ferret", "finch",
	"fox", "gecko", "heron", "ibis", "lemur", "lynx", "marmot", "mole",
	"otter", "owl", "panda", "raven", "seal", "shrew", "sparrow",
	"stoat", "tapir", "toucan", "viper", "walrus", "wombat", "yak",
}

// NewSlug returns a memorable session id like "brave-fox". A short uuid
// suffix disambiguates collisions with existing sessions.
func NewSlug(exists func(string) bool) string {
	for i := 0; i < 8; i++ {
		slug := fmt.Sprintf("%s-%s",
			slugAdjectives[rand.Intn(len(slugAdjectives))],
			slugAnimals[rand.Intn(len(slugAnimals))])
		if exists == nil || !exists(slug) {
			return slug
		}
	}
	return fmt.Sprintf("%s-%s-%s",
		slugAdjectives[rand.Intn(len(slugAdjectives))],
		slugAnimals[rand.Intn(len(slugAnimals))],
		uuid.NewString()[:8])
}
