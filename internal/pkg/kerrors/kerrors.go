package kerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a recoverable terminal failure.
type Kind int

const (
	Unknown Kind = iota
	PathNotFound
	NotADirectory
	IsADirectory
	FileExists
	PermissionDenied
	ContentTooLarge
	PackageNotFound
	PackageNotInstalled
	PackageAlreadyInstalled
	VersionTooLow
	BranchUnsupported
	UnknownBranch
	InvalidPageNumber
	MissingArgument
	InvalidArgument
	CommandNotFound
	// ParentNotFound is a missing directory in the middle of a path.
	ParentNotFound
)

var kindNames = map[Kind]string{
	Unknown:                 "Unknown",
	PathNotFound:            "PathNotFound",
	NotADirectory:           "NotADirectory",
	IsADirectory:            "IsADirectory",
	FileExists:              "FileExists",
	PermissionDenied:        "PermissionDenied",
	ContentTooLarge:         "ContentTooLarge",
	PackageNotFound:         "PackageNotFound",
	PackageNotInstalled:     "PackageNotInstalled",
	PackageAlreadyInstalled: "PackageAlreadyInstalled",
	VersionTooLow:           "VersionTooLow",
	BranchUnsupported:       "BranchUnsupported",
	UnknownBranch:           "UnknownBranch",
	InvalidPageNumber:       "InvalidPageNumber",
	MissingArgument:         "MissingArgument",
	InvalidArgument:         "InvalidArgument",
	CommandNotFound:         "CommandNotFound",
	ParentNotFound:          "ParentNotFound",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a domain failure. Message is the exact text shown to the user.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithPrefix returns a copy whose message is "<prefix>: <message>".
func (e *Error) WithPrefix(prefix string) *Error {
	return &Error{Kind: e.Kind, Message: prefix + ": " + e.Message}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsDomain reports whether err is a recoverable *Error.
func IsDomain(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
