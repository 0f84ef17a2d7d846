package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorDump is the log-only view of an error chain. It may carry driver
// internals and must never be sent to clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	MongoCodes []int `json:"mongo_codes,omitempty"`
}

// maxChain bounds Chain for pathological wrap loops.
const maxChain = 16

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), Code: As(err).codeOrEmpty()}
	for e, n := err, 0; e != nil && n < maxChain; e, n = errors.Unwrap(e), n+1 {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if !d.fillPostgres(err) {
		d.MongoCodes = mongoCodes(err)
	}
	return d
}

func (e *Error) codeOrEmpty() Code {
	if e == nil {
		return ""
	}
	return e.code
}

// fillPostgres copies server error fields from either driver gorm may surface.
func (d *ErrorDump) fillPostgres(err error) bool {
	if pgxErr := (*pgconn.PgError)(nil); errors.As(err, &pgxErr) {
		d.PGCode, d.PGConstraint = pgxErr.Code, pgxErr.ConstraintName
		d.PGTable, d.PGColumn = pgxErr.TableName, pgxErr.ColumnName
		d.PGDetail, d.PGMessage = pgxErr.Detail, pgxErr.Message
		return true
	}
	if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) {
		d.PGCode, d.PGConstraint = string(pqErr.Code), pqErr.Constraint
		d.PGTable, d.PGColumn = pqErr.Table, pqErr.Column
		d.PGDetail, d.PGMessage = pqErr.Detail, pqErr.Message
		return true
	}
	return false
}

func mongoCodes(err error) []int {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		codes := make([]int, 0, len(writeErr.WriteErrors))
		for _, we := range writeErr.WriteErrors {
			codes = append(codes, we.Code)
		}
		return codes
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return []int{int(cmdErr.Code)}
	}
	return nil
}
