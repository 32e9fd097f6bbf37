// Package errors implements Lattice's closed error taxonomy: every error
// that escapes the kernel carries a Kind from a fixed enum so callers can
// classify it without string matching.
package errors

import "fmt"

// Kind is the closed set of error classifications the kernel can produce.
type Kind string

const (
	KindNotARepo            Kind = "not_a_repo"
	KindBareRepo             Kind = "bare_repo"
	KindRefNotFound          Kind = "ref_not_found"
	KindCasFailed            Kind = "cas_failed"
	KindOperationInProgress  Kind = "operation_in_progress"
	KindDirtyWorktree        Kind = "dirty_worktree"
	KindObjectNotFound       Kind = "object_not_found"
	KindInvalidOid           Kind = "invalid_oid"
	KindInvalidUtf8          Kind = "invalid_utf8"
	KindParseError           Kind = "parse_error"
	KindUnsupportedVersion   Kind = "unsupported_version"
	KindInvalidKind          Kind = "invalid_kind"
	KindAccessError          Kind = "access_error"
	KindInternal             Kind = "internal"
)

// LatticeError is a structured error carrying a classification, a
// human-readable message, an optional remediation hint, and the op id it
// occurred under (for ledger correlation), plus the wrapped cause.
type LatticeError struct {
	Kind    Kind
	Message string
	Hint    string
	OpID    string
	Err     error
}

func (e *LatticeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LatticeError) Unwrap() error {
	return e.Err
}

// UserFriendlyMessage renders the message plus hint for CLI surfaces.
func (e *LatticeError) UserFriendlyMessage() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nSuggestion: " + e.Hint
	}
	return msg
}

// New creates a LatticeError with no wrapped cause.
func New(kind Kind, message string) *LatticeError {
	return &LatticeError{Kind: kind, Message: message}
}

// Wrap wraps an existing error with a classification and message.
func Wrap(kind Kind, message string, err error) *LatticeError {
	return &LatticeError{Kind: kind, Message: message, Err: err}
}

// WithHint attaches a remediation hint, returning the same error for chaining.
func WithHint(err *LatticeError, hint string) *LatticeError {
	err.Hint = hint
	return err
}

// WithOpID attaches the operation id this error occurred under.
func WithOpID(err *LatticeError, opID string) *LatticeError {
	err.OpID = opID
	return err
}

// Is reports whether err (or something it wraps) is a *LatticeError of kind k.
func Is(err error, k Kind) bool {
	for err != nil {
		if le, ok := err.(*LatticeError); ok && le.Kind == k {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Domain constructors. Each names the scenario precisely enough for the
// CLI layer to render next-step guidance without re-deriving it.

func NotARepo(path string) *LatticeError {
	return WithHint(
		New(KindNotARepo, fmt.Sprintf("%q is not inside a git repository", path)),
		"Run this command from inside a git working copy or worktree.",
	)
}

func BareRepoRequiresFlag(command, flag string) *LatticeError {
	return WithHint(
		New(KindBareRepo, fmt.Sprintf("%q requires %s in a bare repository", command, flag)),
		fmt.Sprintf("Re-run with %s, or run the command from a worktree that has a working directory.", flag),
	)
}

func RefNotFound(ref string) *LatticeError {
	return New(KindRefNotFound, fmt.Sprintf("ref %q not found", ref))
}

func CasFailed(ref, expected, actual string) *LatticeError {
	return WithHint(
		New(KindCasFailed, fmt.Sprintf("compare-and-swap failed on %s: expected %s, found %s", ref, expected, actual)),
		"Something else changed this ref since the plan was made. Re-run the command to rescan and replan.",
	)
}

func OperationInProgress(opID, command string) *LatticeError {
	return WithHint(
		New(KindOperationInProgress, fmt.Sprintf("lattice operation %s (%s) is already in progress", opID, command)),
		"Run 'lattice continue' or 'lattice abort' to resolve the in-progress operation first.",
	)
}

func DirtyWorktree(staged, unstaged, conflicts int) *LatticeError {
	return WithHint(
		New(KindDirtyWorktree, fmt.Sprintf("working copy is dirty (staged=%d unstaged=%d conflicts=%d)", staged, unstaged, conflicts)),
		"Commit, stash, or discard your changes before running this command.",
	)
}

func ObjectNotFound(oid string) *LatticeError {
	return New(KindObjectNotFound, fmt.Sprintf("object %s not found", oid))
}

func InvalidOid(raw string) *LatticeError {
	return New(KindInvalidOid, fmt.Sprintf("%q is not a valid object id", raw))
}

func InvalidUtf8(context string) *LatticeError {
	return New(KindInvalidUtf8, fmt.Sprintf("%s contains invalid UTF-8", context))
}

func ParseError(context string, err error) *LatticeError {
	return Wrap(KindParseError, fmt.Sprintf("failed to parse %s", context), err)
}

func UnsupportedVersion(kind string, got, want int) *LatticeError {
	return New(KindUnsupportedVersion, fmt.Sprintf("%s schema_version %d unsupported (expected %d)", kind, got, want))
}

func InvalidKind(got, want string) *LatticeError {
	return New(KindInvalidKind, fmt.Sprintf("unexpected kind %q (expected %q)", got, want))
}

func AccessError(operation string, err error) *LatticeError {
	return WithHint(
		Wrap(KindAccessError, fmt.Sprintf("access error during %s", operation), err),
		"Check file and repository permissions.",
	)
}

func Internal(opID, message string) *LatticeError {
	return WithOpID(New(KindInternal, message), opID)
}
