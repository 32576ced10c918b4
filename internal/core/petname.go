package core

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// Internal ids are pronounceable adjective+animal pairs so that lab staff can
// read them aloud without transcription errors. Collisions are resolved by
// retrying; after maxIDAttempts a random hex suffix guarantees uniqueness.
const maxIDAttempts = 20

var idAdjectives = []string{
	"amused", "bold", "brave", "bright", "calm", "casual", "civil", "clear",
	"clever", "crisp", "daring", "eager", "easy", "epic", "fair", "fine",
	"fond", "frank", "gentle", "golden", "grand", "happy", "hardy", "helped",
	"honest", "humble", "keen", "kind", "large", "light", "lively", "loyal",
	"mellow", "mighty", "modern", "modest", "nice", "noble", "polite", "proud",
	"quick", "quiet", "rapid", "rare", "ready", "robust", "sharp", "simple",
	"smart", "solid", "sound", "stable", "steady", "subtle", "sunny", "swift",
	"tender", "tidy", "top", "upbeat", "usable", "valid", "vital", "warm",
}

var idAnimals = []string{
	"badger", "beagle", "beetle", "bison", "bobcat", "camel", "cheetah",
	"cicada", "condor", "coyote", "crane", "cuckoo", "dingo", "donkey",
	"eagle", "falcon", "ferret", "finch", "gecko", "gibbon", "grouse",
	"heron", "hornet", "ibis", "iguana", "impala", "jackal", "kitten",
	"lizard", "llama", "magpie", "mantis", "marlin", "marmot", "mole",
	"moose", "mouse", "ocelot", "osprey", "otter", "owl", "panda",
	"parrot", "pelican", "pony", "puffin", "python", "rabbit", "raccoon",
	"raven", "salmon", "seal", "shrew", "skunk", "sloth", "sparrow",
	"squid", "stork", "swan", "toucan", "trout", "walrus", "weasel", "zebra",
}

func randomIndex(n int) int {
	max := big.NewInt(int64(n))
	idx, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(err)
	}
	return int(idx.Int64())
}

// newInternalID produces a fresh pronounceable id not currently taken.
func newInternalID(taken func(string) bool) string {
	for i := 0; i < maxIDAttempts; i++ {
		id := idAdjectives[randomIndex(len(idAdjectives))] + idAnimals[randomIndex(len(idAnimals))]
		if taken == nil || !taken(id) {
			return id
		}
	}
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return idAdjectives[randomIndex(len(idAdjectives))] + idAnimals[randomIndex(len(idAnimals))] + hex.EncodeToString(b[:])
}
