package grader

import (
	"fmt"

	"github.com/abhisek/texdnd/internal/formula"
)

// TestResult records one self-test run against a check artifact.
type TestResult struct {
	Index     int               `json:"index"`
	Assertion formula.Assertion `json:"assertion"`
	Result    Result            `json:"result"`
	Passed    bool              `json:"passed"`
}

// SelfTestError means an artifact disagrees with one of its own declared
// test cases. Such a problem must not be published.
type SelfTestError struct {
	Index  int
	Test   formula.Assertion
	Result Result
}

func (e *SelfTestError) Error() string {
	what := e.Test.Formula
	if what == "" {
		what = fmt.Sprintf("%v -> %v", e.Test.Draggables, e.Test.Targets)
	}
	return fmt.Sprintf("self-test %d (%s) expected %s but checker returned ok=%t: %s",
		e.Index, what, e.Test.Expect, e.Result.OK, e.Result.Msg)
}

// Submission converts an assertion into the submission it describes.
func Submission(a formula.Assertion) []Assignment {
	sub := make([]Assignment, len(a.Draggables))
	for i := range a.Draggables {
		sub[i] = Assignment{Draggable: a.Draggables[i], Target: a.Targets[i]}
	}
	return sub
}

// RunSelfTests grades every assertion with the artifact. It returns all
// results up to and including the first failure, and a *SelfTestError
// for that failure.
func RunSelfTests(a *Artifact, tests []formula.Assertion, opts EqualOptions) ([]TestResult, error) {
	results := make([]TestResult, 0, len(tests))
	for i, tc := range tests {
		res, err := Check(a, Submission(tc), opts)
		if err != nil {
			return results, fmt.Errorf("self-test %d: %w", i+1, err)
		}
		tr := TestResult{
			Index:     i + 1,
			Assertion: tc,
			Result:    res,
			Passed:    res.OK == (tc.Expect == formula.Correct),
		}
		results = append(results, tr)
		if !tr.Passed {
			return results, &SelfTestError{Index: tr.Index, Test: tc, Result: res}
		}
	}
	return results, nil
}
