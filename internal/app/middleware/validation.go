package middleware

import "context"

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// Validation rejects commands whose struct tags fail before any unit of work opens.
func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return check(v.Validate).commands()
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return check(v.Validate).queries()
}
