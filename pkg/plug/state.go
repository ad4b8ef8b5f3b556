package plug

// State tracks where a Conn is in its response lifecycle. Every state but
// Sent is an unsent state; Sent is terminal.
type State int

const (
	Unset State = iota
	Set
	SetChunked
	SetFile
	File
	Chunked
	// Upgraded marks a conn waiting for a protocol upgrade.
	Upgraded
	Sent
)

var stateNames = [...]string{
	Unset:      "unset",
	Set:        "set",
	SetChunked: "set_chunked",
	SetFile:    "set_file",
	File:       "file",
	Chunked:    "chunked",
	Upgraded:   "upgraded",
	Sent:       "sent",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// IsSent reports whether s is terminal.
func (s State) IsSent() bool { return s == Sent }

// writable reports whether headers, status and cookies may still change.
func (s State) writable() bool {
	return s != Sent && s != Chunked && s != Upgraded
}
