package download

// State is a step of a single track resolution.
//
//	Idle -> Resolving -> (SelectingStream | FetchingArtwork) -> Tagging -> Saved
//
// Any unrecovered failure moves the resolution to Failed.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateSelectingStream
	StateFetchingArtwork
	StateTagging
	StateSaved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateSelectingStream:
		return "selecting-stream"
	case StateFetchingArtwork:
		return "fetching-artwork"
	case StateTagging:
		return "tagging"
	case StateSaved:
		return "saved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateSaved || s == StateFailed
}

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a resolution progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
	State   State
	Locator string
}
