package engine

import (
	"errors"
	"fmt"
)

// Code is a machine-readable program error code surfaced to the caller when a
// transaction aborts.
type Code uint32

// Custom program error codes start at 6000.
const (
	CodeChainClosed Code = 6000 + iota
	CodeNoProfit
	CodeArithmeticUnderflow
	CodeVenueExecutionFailed
	CodeChainAlreadyOpen
	CodeOriginMismatch
	CodeInvalidVenueAccounts
	CodeUnknownVenue
	CodeReentrantVenue
	CodeUnsupported
	CodeInstructionDecode
	CodeInvalidStateAccount
)

// ProgramError is a coded failure raised by the orchestrator.
type ProgramError struct {
	Code Code
	Name string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Name, e.Code)
}

var (
	// ErrChainClosed is returned when a leg or close runs against a chain that is not open.
	ErrChainClosed = &ProgramError{Code: CodeChainClosed, Name: "ChainClosed"}
	// ErrNoProfit is returned by close when the origin balance did not strictly increase.
	ErrNoProfit = &ProgramError{Code: CodeNoProfit, Name: "NoProfit"}
	// ErrArithmeticUnderflow is returned when a leg's destination balance decreased.
	ErrArithmeticUnderflow = &ProgramError{Code: CodeArithmeticUnderflow, Name: "ArithmeticUnderflow"}
	// ErrVenueExecutionFailed marks a failed external venue call. See VenueError.
	ErrVenueExecutionFailed = &ProgramError{Code: CodeVenueExecutionFailed, Name: "VenueExecutionFailed"}
	// ErrChainAlreadyOpen is returned by open while another chain is in flight.
	ErrChainAlreadyOpen = &ProgramError{Code: CodeChainAlreadyOpen, Name: "ChainAlreadyOpen"}
	// ErrOriginMismatch is returned by close when given a different origin account than open.
	ErrOriginMismatch = &ProgramError{Code: CodeOriginMismatch, Name: "OriginMismatch"}
	// ErrInvalidVenueAccounts is returned when venue accounts fail structural checks.
	ErrInvalidVenueAccounts = &ProgramError{Code: CodeInvalidVenueAccounts, Name: "InvalidVenueAccounts"}
	// ErrUnknownVenue is returned for a venue tag with no registered adapter.
	ErrUnknownVenue = &ProgramError{Code: CodeUnknownVenue, Name: "UnknownVenue"}
	// ErrReentrantVenue is returned when a venue call targets the orchestrator itself.
	ErrReentrantVenue = &ProgramError{Code: CodeReentrantVenue, Name: "ReentrantVenue"}
	// ErrUnsupported is returned when a venue has no auxiliary account protocol.
	ErrUnsupported = &ProgramError{Code: CodeUnsupported, Name: "Unsupported"}
	// ErrInstructionDecode is returned for malformed instruction data.
	ErrInstructionDecode = &ProgramError{Code: CodeInstructionDecode, Name: "InstructionDecode"}
	// ErrInvalidStateAccount is returned when the supplied state account is not the program's record.
	ErrInvalidStateAccount = &ProgramError{Code: CodeInvalidStateAccount, Name: "InvalidStateAccount"}
)

// VenueError carries a failed external venue call. It reports
// ErrVenueExecutionFailed through errors.Is and exposes the venue's own
// error, untouched, through Unwrap.
type VenueError struct {
	Venue string
	Err   error
}

// VenueFailure wraps err as a failed call into venue.
func VenueFailure(venue string, err error) error {
	return &VenueError{Venue: venue, Err: err}
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("%s: venue %s: %v", ErrVenueExecutionFailed.Name, e.Venue, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

func (e *VenueError) Is(target error) bool { return target == ErrVenueExecutionFailed }

// CodeOf extracts the program error code from err, if any.
func CodeOf(err error) (Code, bool) {
	var venueErr *VenueError
	if errors.As(err, &venueErr) {
		return CodeVenueExecutionFailed, true
	}
	var progErr *ProgramError
	if errors.As(err, &progErr) {
		return progErr.Code, true
	}
	return 0, false
}
