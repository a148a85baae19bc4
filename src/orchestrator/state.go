package orchestrator

// State is the progress of the current capture operation.
type State int32

const (
	Idle State = iota
	Capturing
	Naming
	Linking
	UploadGated
	// Uploaded means the artifact was handed to the gate, started or pending.
	Uploaded
	// Aborted means no artifact was produced.
	Aborted
)

var stateNames = [...]string{"Idle", "Capturing", "Naming", "Linking", "UploadGated", "Uploaded", "Aborted"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}
