package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the clip ledger cares about.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
	pgLockNotAvailable    = "55P03"
	pgQueryCanceled       = "57014"
)

// PGInfo is the server-side detail of a postgres error, whichever driver
// raised it.
type PGInfo struct {
	Code       string `json:"pg_code,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Column     string `json:"pg_column,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// Postgres extracts PGInfo from anywhere in err's chain.
func Postgres(err error) (PGInfo, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return PGInfo{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PGInfo{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PGInfo{}, false
}

// Classify returns err as a typed error. Typed errors pass through; driver
// errors are translated by SQLSTATE so a constraint that fires without an
// explicit mapping still reaches the client with a meaningful code.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if typed := As(err); typed != nil {
		return typed
	}
	info, ok := Postgres(err)
	if !ok {
		return Wrap(CodeInternal, err, "unexpected error")
	}
	switch info.Code {
	case pgUniqueViolation:
		return Wrap(CodeConflict, err, "resource already exists")
	case pgForeignKeyViolation:
		return Wrap(CodeNotFound, err, "referenced resource not found")
	case pgCheckViolation:
		return Wrap(CodePrecondition, err, "balance constraint violated")
	case pgSerializationFail, pgDeadlockDetected, pgLockNotAvailable, pgQueryCanceled:
		return Wrap(CodeDependency, err, "database busy, retry the request")
	default:
		return Wrap(CodeInternal, err, "unexpected error")
	}
}

// ErrorDump is the log-side view of an error: its typed code, the unwrap
// chain and any postgres detail.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Chain      []string
	PG         *PGInfo
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if info, ok := Postgres(err); ok {
		d.PG = &info
	}
	return d
}

// Fields flattens the dump into log fields, skipping empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	if d.PG == nil {
		return fields
	}
	for key, value := range map[string]string{
		"pg_code":       d.PG.Code,
		"pg_constraint": d.PG.Constraint,
		"pg_table":      d.PG.Table,
		"pg_column":     d.PG.Column,
		"pg_detail":     d.PG.Detail,
		"pg_message":    d.PG.Message,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
