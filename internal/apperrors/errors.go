package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInsufficientFunds indicates a withdrawal larger than the available balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrConflict indicates that a concurrent mutation raced with ours on the same
// account. It is recovered internally via retry and never reaches the caller.
var ErrConflict = errors.New("concurrent balance modification")
