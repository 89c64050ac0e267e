package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PG error classes surfaced in logs.
const (
	PGClassUniqueViolation = "unique_violation"
	PGClassForeignKey      = "foreign_key_violation"
	PGClassSchemaDrift     = "schema_drift"
	PGClassCanceled        = "canceled"
)

var pgClasses = map[string]string{
	"23505": PGClassUniqueViolation,
	"23503": PGClassForeignKey,
	// undefined column / table: the live schema no longer matches the startup contract.
	"42703": PGClassSchemaDrift,
	"42P01": PGClassSchemaDrift,
	"57014": PGClassCanceled,
}

type stepNamer interface {
	StepName() string
}

// ErrorDump is the log view of an error chain.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Retryable  bool     `json:"retryable"`
	Step       string   `json:"step,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGClass      string `json:"pg_class,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Dump flattens err for structured logging. The step is read from details exposing
// StepName or from a "step" key of map details.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}

	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
		d.Step = stepOf(te.Details())
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}

	d.PGClass = pgClasses[d.PGCode]
	if d.PGClass == "" && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		d.PGClass = PGClassCanceled
	}
	return d
}

// Fields returns the non-empty dump values keyed for a log line.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
		"retryable":   d.Retryable,
	}
	optional := map[string]string{
		"error_code":    string(d.Code),
		"step":          d.Step,
		"pg_code":       d.PGCode,
		"pg_class":      d.PGClass,
		"pg_constraint": d.PGConstraint,
		"pg_table":      d.PGTable,
		"pg_column":     d.PGColumn,
		"pg_detail":     d.PGDetail,
		"pg_message":    d.PGMessage,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}

func stepOf(details any) string {
	switch d := details.(type) {
	case stepNamer:
		return d.StepName()
	case map[string]any:
		if step, ok := d["step"].(string); ok {
			return step
		}
	}
	return ""
}
