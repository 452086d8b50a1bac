package vrs

// RGBStreamID is the StreamId of the Aria RGB camera inside a VRS recording.
const RGBStreamID = "214-1"

// Session identifies a recording by the subject/session naming convention
// used in data collection (subjNN_sessMM.vrs). Recordings outside the
// convention still process fine, they just have no session identity.
type Session struct {
	Subject int
	Number  int
}

// StreamInfo describes a single sensor stream inside a recording.
type StreamInfo struct {
	ID    string
	Label string
}
