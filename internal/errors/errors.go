// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines the error handling used by the portpatch codebase.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/kptdev/portpatch/internal/types"
)

// Error is an implementation of the error interface used in the portpatch
// codebase.
// It is based on the design in https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html
type Error struct {
	// Path is the directory involved in the operation.
	Path types.UniquePath

	// Target is the porting target involved in the operation.
	Target types.TargetName

	// Op is the operation being performed, for ex. gitutil.Extract
	Op Op

	// Kind refers to classs of errors
	Kind Kind

	// Err refers to wrapped error (if any)
	Err error
}

func (e *Error) Error() string {
	b := new(strings.Builder)

	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(string(e.Op))
	}

	if !e.Target.Empty() {
		pad(b, ": ")
		b.WriteString("target ")
		b.WriteString(string(e.Target))
	}

	if e.Path != "" {
		pad(b, ": ")
		b.WriteString("dir ")
		b.WriteString(string(e.Path))
	}

	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}

	if e.Err != nil {
		if wrappedErr, ok := e.Err.(*Error); ok {
			if !wrappedErr.Zero() {
				pad(b, ":\n\t")
				b.WriteString(wrappedErr.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Unwrap returns the wrapped error so errors.Is and errors.As see through
// the chain.
func (e *Error) Unwrap() error {
	return e.Err
}

// pad appends given str to the string buffer.
func pad(b *strings.Builder, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Zero() bool {
	return e.Op == "" && e.Path == "" && e.Target == "" && e.Kind == 0 && e.Err == nil
}

// Op describes the operation being performed.
type Op string

// Kind describes the class of errors encountered.
type Kind int

const (
	Other             Kind = iota // Unclassified. Will not be printed.
	Internal                      // Internal error.
	InvalidParam                  // Value is not valid.
	MissingParam                  // Required value is missing or empty.
	IO                            // Filesystem error.
	Git                           // Errors from the git backend.
	ReferenceNotFound             // Branch, tag or commit could not be resolved.
	Configuration                 // Required setting missing or unusable.
	DiffEngine                    // Patch generation failed.
	PatchEngine                   // Patch application failed hard.
	PatchesRejected               // Some hunks could not be applied.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Internal:
		return "internal error"
	case InvalidParam:
		return "invalid parameter value"
	case MissingParam:
		return "missing parameter value"
	case IO:
		return "I/O error"
	case Git:
		return "git error"
	case ReferenceNotFound:
		return "reference not found"
	case Configuration:
		return "configuration error"
	case DiffEngine:
		return "diff engine error"
	case PatchEngine:
		return "patch engine error"
	case PatchesRejected:
		return "patches rejected"
	}
	return "unknown kind"
}

func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E must have at least one argument")
	}

	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case types.UniquePath:
			e.Path = a
		case types.TargetName:
			e.Target = a
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case *Error:
			cp := *a
			e.Err = &cp
		case error:
			e.Err = a
		case string:
			e.Err = goerrors.New(a)
		default:
			panic(fmt.Errorf("unknown type %T for value %v in call to error.E", a, a))
		}
	}

	wrappedErr, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	if e.Path == wrappedErr.Path {
		wrappedErr.Path = ""
	}

	if e.Target == wrappedErr.Target {
		wrappedErr.Target = ""
	}

	if e.Op == wrappedErr.Op {
		wrappedErr.Op = ""
	}

	if e.Kind == wrappedErr.Kind {
		wrappedErr.Kind = 0
	}

	return e
}

// Is reports whether err is an *Error of the given kind. It walks the
// whole chain, so a kind set on any wrapped *Error counts.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		var rejected *PatchesRejectedError
		if kind == PatchesRejected && goerrors.As(err, &rejected) {
			return true
		}
		err = goerrors.Unwrap(err)
	}
	return false
}

// As is a convenience re-export of the standard library errors.As.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// PatchesRejectedError is returned when patch application completed but
// one or more files had hunks that could not be placed. The affected paths
// have .rej artifacts in the rejects directory.
type PatchesRejectedError struct {
	// Paths are the slash-separated paths of the rejected files, relative
	// to the tree root. For workflow operations they are prefixed with the
	// target name.
	Paths []string
}

func (e *PatchesRejectedError) Error() string {
	return fmt.Sprintf("%d file(s) had rejected hunks: %s",
		len(e.Paths), strings.Join(e.Paths, ", "))
}

const (
	// ExitClean means the operation finished without differences or rejects.
	ExitClean = 0
	// ExitDifferences means the operation finished and found differences
	// or produced rejects. It is not a failure.
	ExitDifferences = 1
	// ExitFailure means the operation failed hard.
	ExitFailure = 2
)

// ExitCode maps an error returned by an engine or workflow operation to the
// tri-state exit status: 0 clean, 1 rejects, 2 hard failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitClean
	}
	var differences *DifferencesError
	if Is(err, PatchesRejected) || goerrors.As(err, &differences) {
		return ExitDifferences
	}
	return ExitFailure
}

// DifferencesError is returned by commands that report found differences
// through their exit status. It is not a failure.
type DifferencesError struct {
	Count int
}

func (e *DifferencesError) Error() string {
	return fmt.Sprintf("%d difference(s) found", e.Count)
}
