package core

const (
	// DefaultDataFilePath is used when no data file path is configured.
	DefaultDataFilePath = "storage.db"

	// Degree of the B-tree backing the ordered key directory.
	keyTreeDegree = 3
)
