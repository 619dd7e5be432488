// Package cdb defines the boundary to the Command Data Block collaborator:
// the in-band request/response sub-protocol used for firmware management.
// Command framing, paging and checksum computation live behind the API
// interface; the driver only sequences commands and interprets status codes.
package cdb

// Hardware status codes the driver branches on. Any other status is a
// command failure reported verbatim in diagnostics.
const (
	StatusSuccess          uint8 = 0x01
	StatusPasswordRequired uint8 = 0x46
)

// Reply carries the reply area of a completed CDB command.
type Reply struct {
	// Length is the reply length the module reported.
	Length int
	// Chkcode is the reply check code the module wrote; callers verify it
	// against Checksum(Payload).
	Chkcode uint16
	// Payload is the raw reply payload.
	Payload []byte
}

// Result is the outcome of a CDB command that produces a reply. A nil
// Reply with a non-success status means the interface itself failed
// (NACK or timeout).
type Result struct {
	Status uint8
	Reply  *Reply
}

// API is the CDB collaborator. Implementations are not safe for concurrent
// use against the same physical port.
type API interface {
	// FwManagementFeatures runs the firmware-features query (CMD 0041h).
	FwManagementFeatures() (Result, error)
	// FwInfo runs the firmware-info query (CMD 0100h).
	FwInfo() (Result, error)
	// StartFwDownload begins a download (CMD 0101h): header carries the
	// first startSize bytes of the image, imageSize the total length.
	StartFwDownload(startSize int, header []byte, imageSize int) (uint8, error)
	// BlockWriteLPL writes one block through the local payload (CMD 0103h).
	BlockWriteLPL(address int, data []byte) (uint8, error)
	// BlockWriteEPL writes one block through the extended payload
	// (CMD 0104h), optionally letting the module auto-page.
	BlockWriteEPL(address int, data []byte, autoPaging bool, writeLength int) (uint8, error)
	// ValidateFwImage completes a download (CMD 0107h).
	ValidateFwImage() (uint8, error)
	// RunFwImage transfers control to an image (CMD 0109h).
	RunFwImage(mode uint8) (uint8, error)
	// CommitFwImage commits the running image for future boots (CMD 010Ah).
	CommitFwImage() (uint8, error)
	// AbortFwDownload aborts an in-progress download (CMD 0102h).
	AbortFwDownload() (uint8, error)
	// EnterPassword presents a host password (CMD 0000h).
	EnterPassword(password uint32) (uint8, error)
	// Checksum computes the check code over a payload, matching the
	// module's reply check code algorithm.
	Checksum(payload []byte) uint16
}
