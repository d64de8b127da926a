package domain

import "errors"

var (
	ErrInvalidEdge    = errors.New("invalid edge")
	ErrInvalidClaim   = errors.New("invalid claim")
	ErrGoalNotFound   = errors.New("goal not found")
	ErrGoalNotActive  = errors.New("goal not active")
	ErrMalformedGoal  = errors.New("malformed goal")
	ErrEmptyWorkspace = errors.New("workspace id is required")
)
