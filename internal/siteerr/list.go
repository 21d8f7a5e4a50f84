package siteerr

import (
	"fmt"
	"strings"
)

// Problem is a single error found at a named field.
type Problem struct {
	// Field is the place of the problem like "sites[0]". It may be empty.
	Field string

	Err error
}

func (p Problem) Error() string {
	if p.Field == "" {
		return p.Err.Error()
	}
	return p.Field + ": " + p.Err.Error()
}

func (p Problem) Unwrap() error {
	return p.Err
}

// List is a set of problems of the same Kind.
//
// errors.Is matches both the Kind and each problem.
type List struct {
	Kind     error
	Problems []Problem
}

// Error renders the Kind followed by one indented line per problem.
func (l List) Error() string {
	var b strings.Builder
	b.WriteString(l.Kind.Error())
	b.WriteByte(':')

	for _, p := range l.Problems {
		for line := range strings.SplitSeq(p.Error(), "\n") {
			b.WriteString("\n  ")
			b.WriteString(line)
		}
	}

	return b.String()
}

func (l List) Unwrap() []error {
	errs := make([]error, 0, len(l.Problems)+1)
	errs = append(errs, l.Kind)
	for _, p := range l.Problems {
		errs = append(errs, p)
	}
	return errs
}

// Fields returns the field names that have problems, in the reported order.
func (l List) Fields() []string {
	fs := make([]string, 0, len(l.Problems))
	for _, p := range l.Problems {
		if p.Field != "" {
			fs = append(fs, p.Field)
		}
	}
	return fs
}

// ListBuilder collects problems while validating something.
type ListBuilder struct {
	Kind     error
	problems []Problem
}

// Add records err at field. Nil err is ignored.
func (lb *ListBuilder) Add(field string, err error) {
	if err == nil {
		return
	}
	lb.problems = append(lb.problems, Problem{Field: field, Err: err})
}

// Addf records a formatted error at field.
func (lb *ListBuilder) Addf(field, format string, values ...any) {
	lb.Add(field, fmt.Errorf(format, values...))
}

// Len returns the number of recorded problems.
func (lb *ListBuilder) Len() int {
	return len(lb.problems)
}

// Build returns a List of the recorded problems, or nil if nothing went wrong.
func (lb *ListBuilder) Build() error {
	if len(lb.problems) == 0 {
		return nil
	}
	return List{
		Kind:     lb.Kind,
		Problems: append([]Problem(nil), lb.problems...),
	}
}
