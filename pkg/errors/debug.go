package errors

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	SQLState      string `json:"sql_state,omitempty"`
	SQLNumber     uint16 `json:"sql_number,omitempty"`
	SQLConstraint string `json:"sql_constraint,omitempty"`
	SQLTable      string `json:"sql_table,omitempty"`
	SQLDetail     string `json:"sql_detail,omitempty"`
	SQLMessage    string `json:"sql_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		d.SQLState = string(myErr.SQLState[:])
		d.SQLNumber = myErr.Number
		d.SQLMessage = myErr.Message
		return d
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		d.SQLState = pgErr.Code
		d.SQLConstraint = pgErr.ConstraintName
		d.SQLTable = pgErr.TableName
		d.SQLDetail = pgErr.Detail
		d.SQLMessage = pgErr.Message
		return d
	}

	return d
}

// Fields flattens the dump for structured logging.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error_chain": d.Chain}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if d.SQLState != "" {
		fields["sql_state"] = d.SQLState
	}
	if d.SQLNumber != 0 {
		fields["sql_number"] = d.SQLNumber
	}
	if d.SQLConstraint != "" {
		fields["sql_constraint"] = d.SQLConstraint
	}
	if d.SQLTable != "" {
		fields["sql_table"] = d.SQLTable
	}
	if d.SQLMessage != "" {
		fields["sql_message"] = d.SQLMessage
	}
	return fields
}
