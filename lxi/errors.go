package lxi

import "errors"

var (
	// ErrConnConfigNil indicates that a nil ConnectionConfig was provided.
	ErrConnConfigNil = errors.New("connection config is nil")

	// ErrSessionClosed indicates that the session is not open.
	ErrSessionClosed = errors.New("session closed")
)

var (
	// ErrTransferIncomplete indicates that a block reply stopped arriving before
	// the length declared by its header was reached.
	ErrTransferIncomplete = errors.New("transfer incomplete")

	// ErrOPCTimeout indicates that the instrument never answered "1" to *OPC?
	// within the configured number of attempts.
	ErrOPCTimeout = errors.New("operation complete query timeout")
)

// CommandErrorReply is the verbatim reply the instrument sends for a command it rejects.
const CommandErrorReply = "command error"
