package process

import "fmt"

// SpawnError is returned when the shell could not be started.
type SpawnError struct {
	Shell string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Shell, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// DecodeError is returned when a stream is not valid UTF-8.
type DecodeError struct {
	Stream string // "stdout" or "stderr"
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: output is not valid UTF-8", e.Stream)
}
