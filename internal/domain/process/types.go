package process

import (
	"sync"
	"time"
)

// Spec describes how to launch one managed child process.
type Spec struct {
	Name   string            // stage name carried into logs
	Argv   []string          // command and arguments
	Dir    string            // working directory, inherited when empty
	Env    map[string]string // extra variables layered over the parent environment
	UsePTY bool              // allocate a pseudo terminal instead of pipes
}

// ExitResult reports how a child process ended.
type ExitResult struct {
	Code     int       // exit code, 128+signal when a signal ended the process
	Signaled bool      // true when a signal ended the process
	Err      error     // set when waiting failed for another reason
	At       time.Time // when the exit was observed
}

// Info is the public representation of a managed process.
type Info struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at"`
	ExitCode  *int      `json:"exit_code,omitempty"`
}

// Buffer is a thread-safe circular buffer for child output
type Buffer struct {
	data []byte
	size int
	head int
	tail int
	mu   sync.RWMutex
}

// NewBuffer creates a new circular buffer
func NewBuffer(size int) *Buffer {
	return &Buffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write writes data to the buffer
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		b.data[b.tail] = c
		b.tail = (b.tail + 1) % b.size

		// If buffer is full, move head forward
		if b.tail == b.head {
			b.head = (b.head + 1) % b.size
		}
	}

	return len(p), nil
}

// Bytes returns a copy of the buffered output without consuming it. The
// status API reads the same buffer repeatedly while the process runs.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.head == b.tail {
		return []byte{}
	}

	var result []byte
	if b.tail > b.head {
		result = make([]byte, b.tail-b.head)
		copy(result, b.data[b.head:b.tail])
	} else {
		// Buffer wrapped around
		firstPart := b.data[b.head:]
		secondPart := b.data[:b.tail]
		result = make([]byte, len(firstPart)+len(secondPart))
		copy(result, firstPart)
		copy(result[len(firstPart):], secondPart)
	}

	return result
}
