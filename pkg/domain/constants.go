package domain

// Field keys of the persisted log. Records are stored as maps keyed by these names,
// the same tags drive mapstructure decoding in the undo package.
const (
	// KeyWhat is the record discriminator.
	KeyWhat = "what"

	// SentinelPost is the number of the empty post every stack starts with.
	SentinelPost = -1
)
