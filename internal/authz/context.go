package authz

import "context"

type subjectContextKey struct{}

// ContextWithSubject stores the evaluated subject in context.
func ContextWithSubject(ctx context.Context, subject Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey{}, subject)
}

// SubjectFromContext extracts the subject from context. The zero Subject is
// returned when none is present, which evaluates as unauthenticated.
func SubjectFromContext(ctx context.Context) Subject {
	subject, _ := ctx.Value(subjectContextKey{}).(Subject)
	return subject
}
