package main

import (
	"encoding/json"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Konsultn-Engineering/gsql"
	"github.com/go-logfmt/logfmt"
	"github.com/pkg/errors"
)

type resultJSON struct {
	OK           bool       `json:"ok"`
	Reason       string     `json:"reason"`
	Rows         []gsql.Row `json:"rows,omitempty"`
	RowsAffected int64      `json:"rows_affected"`
	LastInsertID int64      `json:"last_insert_id,omitempty"`
}

// report prints out and returns an error unless it succeeded.
func report(w io.Writer, format string, out gsql.Outcome) error {
	var err error
	switch format {
	case "text":
		err = writeText(w, out)
	default:
		err = writeJSON(w, out)
	}
	if err != nil {
		return err
	}

	if !out.OK() {
		if out.Err != nil {
			return errors.Wrap(out.Err, string(out.Reason))
		}
		return errors.New(string(out.Reason))
	}
	return nil
}

func writeJSON(w io.Writer, out gsql.Outcome) error {
	r := resultJSON{OK: out.OK(), Reason: string(out.Reason)}
	if out.Result != nil {
		r.Rows = out.Result.Rows
		r.RowsAffected = out.Result.RowsAffected
		r.LastInsertID = out.Result.LastInsertID
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// writeText prints one logfmt record per row, columns sorted, followed by
// a summary record.
func writeText(w io.Writer, out gsql.Outcome) error {
	enc := logfmt.NewEncoder(w)

	if out.Result != nil {
		for _, row := range out.Result.Rows {
			cols := make([]string, 0, len(row))
			for c := range row {
				cols = append(cols, c)
			}
			sort.Strings(cols)
			for _, c := range cols {
				if err := enc.EncodeKeyval(c, textValue(row[c])); err != nil {
					return err
				}
			}
			if err := enc.EndRecord(); err != nil {
				return err
			}
		}
	}

	if err := enc.EncodeKeyval("reason", string(out.Reason)); err != nil {
		return err
	}
	if out.Result != nil {
		if err := enc.EncodeKeyvals("rows_affected", out.Result.RowsAffected, "last_insert_id", out.Result.LastInsertID); err != nil {
			return err
		}
	}
	return enc.EndRecord()
}

func textValue(v any) any {
	if v == nil {
		return "NULL"
	}
	return v
}

func splitParam(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	if !ok || name == "" {
		return "", "", errors.Errorf("invalid parameter %q: want name=value", kv)
	}
	return name, value, nil
}

// parseScalar types a command line value: null, true, false, integers and
// floats are recognised, anything else is a string.
func parseScalar(s string) any {
	switch s {
	case "null", "NULL":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}
