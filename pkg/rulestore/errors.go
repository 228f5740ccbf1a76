package rulestore

import "errors"

var (
	// ErrNotFound is returned when no rule carries the requested id.
	ErrNotFound = errors.New("rule not found")

	// ErrEmptyID is returned when a lookup or delete has no id.
	ErrEmptyID = errors.New("rule id is empty")

	// ErrEmptyRuleSetID is returned when a rule-set operation has no id.
	ErrEmptyRuleSetID = errors.New("rule set id is empty")

	// ErrNilDatabase is returned when a Mongo repository is built without
	// a database handle.
	ErrNilDatabase = errors.New("mongo database is nil")

	// ErrNilPool is returned when a Postgres repository is built without
	// a connection pool.
	ErrNilPool = errors.New("postgres pool is nil")

	// ErrEmptyPath is returned when a file repository is built without
	// a file path.
	ErrEmptyPath = errors.New("rules file path is empty")
)
