package types

// MemoryType classifies a learning event held in memory.
type MemoryType string

// Memory type constants
const (
	MemoryEpisodic   MemoryType = "episodic"   // A specific interaction
	MemorySemantic   MemoryType = "semantic"   // A fact or concept
	MemoryProcedural MemoryType = "procedural" // How to do something
	MemoryWorking    MemoryType = "working"    // Scratch state (default)
)

// ValidMemoryTypes is a slice of all valid memory types for validation
var ValidMemoryTypes = []MemoryType{
	MemoryEpisodic,
	MemorySemantic,
	MemoryProcedural,
	MemoryWorking,
}

// IsValid reports whether m is a known memory type.
func (m MemoryType) IsValid() bool {
	for _, v := range ValidMemoryTypes {
		if m == v {
			return true
		}
	}
	return false
}
