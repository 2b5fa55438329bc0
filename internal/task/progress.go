package task

// Kind identifies a task on the progress channel.
type Kind string

const (
	KindBuildIndex         Kind = "build-index"
	KindSearchFiles        Kind = "search-files"
	KindSearchContent      Kind = "search-content"
	KindSearchContentList  Kind = "search-content-list"
	KindSearchContentIndex Kind = "search-content-index"
	KindSearchIndex        Kind = "search-index"
	KindFolderSize         Kind = "folder-size"
	KindChecksum           Kind = "checksum"
	KindLoadIndex          Kind = "load-index"
	KindSaveIndex          Kind = "save-index"
	KindListDirectory      Kind = "list-directory"
)

// Message is a fire-and-forget progress event for the host. No
// acknowledgment is expected or required.
type Message struct {
	Type        string `json:"type"`
	Task        Kind   `json:"task"`
	OperationID string `json:"operationId"`
	Data        any    `json:"data"`
}

// Emitter delivers progress messages to the host without ever blocking
// the task that emits them. When the channel is full the message is
// dropped.
type Emitter struct {
	ch chan Message
}

// NewEmitter creates an emitter with the given channel capacity.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 256
	}
	return &Emitter{ch: make(chan Message, buffer)}
}

// Events returns the channel the host drains.
func (e *Emitter) Events() <-chan Message {
	return e.ch
}

// Emit sends a progress message. Tasks invoked without an operation id
// are not cancellable by id and emit nothing.
func (e *Emitter) Emit(kind Kind, opID string, data any) {
	if e == nil || opID == "" {
		return
	}
	msg := Message{Type: "progress", Task: kind, OperationID: opID, Data: data}
	select {
	case e.ch <- msg:
		progressEmitted.Inc()
	default:
		progressDropped.Inc()
	}
}

// Close closes the event channel. Call only after all tasks finished.
func (e *Emitter) Close() {
	close(e.ch)
}
