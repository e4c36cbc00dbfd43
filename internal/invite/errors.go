package invite

import (
	"errors"
	"fmt"
)

// Server error descriptions that map to a limit error. These strings are
// part of the wire protocol.
const (
	descInvitesTooMuch = "INVITES_TOO_MUCH"
	descFoldersTooMuch = "DIALOG_FILTERS_TOO_MUCH"
)

// RPCError is a failure reported by the server.
type RPCError struct {
	Code        int
	Description string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Description)
}

// ExportError is returned by Export.
type ExportError int

const (
	ExportGeneric ExportError = iota
	ExportLimitExceeded
)

func (e ExportError) Error() string {
	if e == ExportLimitExceeded {
		return "export folder link: too many invites for this folder"
	}
	return "export folder link failed"
}

// EditError is returned by Edit.
type EditError int

const EditGeneric EditError = 0

func (e EditError) Error() string { return "edit folder link failed" }

// RevokeError is returned by Delete.
type RevokeError int

const RevokeGeneric RevokeError = 0

func (e RevokeError) Error() string { return "delete folder link failed" }

// CheckError is returned by Check.
type CheckError int

const CheckGeneric CheckError = 0

func (e CheckError) Error() string { return "check folder link failed" }

// JoinError is returned by Join and JoinAvailable.
type JoinError int

const (
	JoinGeneric JoinError = iota
	JoinLimitExceeded
)

func (e JoinError) Error() string {
	if e == JoinLimitExceeded {
		return "join folder: too many folders for this account"
	}
	return "join folder failed"
}

// description returns the server description of err, or "" when err was
// not reported by the server.
func description(err error) string {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr != nil {
		return rpcErr.Description
	}
	return ""
}

// ClassifyExport maps a transport failure of Export.
func ClassifyExport(err error) ExportError {
	if description(err) == descInvitesTooMuch {
		return ExportLimitExceeded
	}
	return ExportGeneric
}

// ClassifyJoin maps a transport failure of Join or JoinAvailable.
func ClassifyJoin(err error) JoinError {
	if description(err) == descFoldersTooMuch {
		return JoinLimitExceeded
	}
	return JoinGeneric
}

// ClassifyEdit maps a transport failure of Edit.
func ClassifyEdit(error) EditError { return EditGeneric }

// ClassifyRevoke maps a transport failure of Delete.
func ClassifyRevoke(error) RevokeError { return RevokeGeneric }

// ClassifyCheck maps a transport failure of Check.
func ClassifyCheck(error) CheckError { return CheckGeneric }
