package event

// Type identifies the source of the message
type Type int

const (
	AsyncResult   Type = iota // Async work completion dispatched onto the session loop
	ReadResult                // File read completion; counts as in-flight work until handled
	SystemControl             // Lifecycle requests from scripts
)

// Control action constants
const (
	ActionQuit       = "quit"
	ActionLoadScript = "load_script"
)

// ControlOp contains control operation details
type ControlOp struct {
	Action     string // Use Action* constants
	ScriptPath string
}

// Event is the universal packet sent to the session loop
type Event struct {
	Type     Type
	Callback func()    // For AsyncResult and ReadResult events
	Control  ControlOp // For SystemControl events
}
