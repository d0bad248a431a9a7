package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateDeclaration is returned when a name is registered twice
	// within one namespace.
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	// ErrAlreadyFinalized is returned by every mutation after Freeze.
	ErrAlreadyFinalized = errors.New("model already finalized")
	// ErrUnknownHandle is returned when a handle does not belong to the registry.
	ErrUnknownHandle = errors.New("unknown handle")
	// ErrUnknownName is returned when a name lookup fails.
	ErrUnknownName = errors.New("unknown name")
)

// IssueKind classifies a configuration issue found at finalization.
type IssueKind int

const (
	IssueCycle IssueKind = iota
	IssueSolverCoupling
	IssueIndexSets
	IssueInitialValue
	IssueTrace
	IssueComputedExternally
	IssueCrossIndex
	IssueDeclaration
)

func (k IssueKind) String() string {
	switch k {
	case IssueCycle:
		return "cycle"
	case IssueSolverCoupling:
		return "solver coupling"
	case IssueIndexSets:
		return "index sets"
	case IssueInitialValue:
		return "initial value"
	case IssueTrace:
		return "trace"
	case IssueComputedExternally:
		return "computed externally"
	case IssueCrossIndex:
		return "cross index"
	case IssueDeclaration:
		return "declaration"
	default:
		return fmt.Sprintf("IssueKind(%d)", int(k))
	}
}

// Issue is a single problem found while finalizing a model. Equations lists
// the names of every equation involved.
type Issue struct {
	Kind      IssueKind
	Message   string
	Equations []string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}

// ConfigurationError collects every issue found at finalization. The model
// cannot run while any issue remains.
type ConfigurationError struct {
	Issues []Issue
}

func (e *ConfigurationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = is.String()
	}
	return fmt.Sprintf("model configuration failed:\n- %s", strings.Join(lines, "\n- "))
}

// Has reports whether any issue of the given kind names the equation.
func (e *ConfigurationError) Has(kind IssueKind, equation string) bool {
	for _, is := range e.Issues {
		if is.Kind != kind {
			continue
		}
		for _, name := range is.Equations {
			if name == equation {
				return true
			}
		}
	}
	return false
}

// Issues accumulates configuration issues.
type Issues []Issue

// Add records an issue involving the given equations.
func (is *Issues) Add(kind IssueKind, equations []string, format string, args ...any) {
	*is = append(*is, Issue{Kind: kind, Message: fmt.Sprintf(format, args...), Equations: equations})
}

// Err returns a *ConfigurationError holding the issues, or nil when there are none.
func (is Issues) Err() error {
	if len(is) == 0 {
		return nil
	}
	return &ConfigurationError{Issues: append([]Issue(nil), is...)}
}
