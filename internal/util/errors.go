package util

import "errors"

var (
	ErrMissingLearner  = errors.New("token carries no learner id")
	ErrSubjectNotFound = errors.New("subject not found")
)
