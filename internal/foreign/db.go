package foreign

import (
	"database/sql"
	"fmt"
	"sync"

	"tern/internal/value"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Host-side database bridge. Connections and transactions live on this side
// of the boundary, addressed by opaque handle ids; only marshalled runtime
// values cross it.

var (
	dbMu           sync.Mutex
	dbConnections  = map[int64]*sql.DB{}
	dbTransactions = map[int64]*sql.Tx{}
)

// GetForeignFunctions returns the owned function values of the db bridge,
// keyed by the names the language stdlib binds them to.
func GetForeignFunctions() map[string]value.Value {
	return map[string]value.Value{
		"db_connect":    fnDbConnect(),
		"db_query":      fnDbQuery(),
		"db_exec":       fnDbExec(),
		"db_begin":      fnDbBegin(),
		"db_commit":     fnDbCommit(),
		"db_rollback":   fnDbRollback(),
		"db_disconnect": fnDbDisconnect(),
	}
}

func fnDbConnect() value.Value {
	return value.NewFunction("db_connect", 2, 2, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		connStr, ok := unpackString(args[0], "")
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "db_connect expects a connection string, got %s", args[0].Kind())
		}
		driver, ok := unpackString(args[1], "")
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "db_connect expects a driver name, got %s", args[1].Kind())
		}

		db, err := sql.Open(driver, connStr)
		if err != nil {
			return value.Null(), ctx.NewError(value.StateError, "failed to open connection: %v", err)
		}
		if err := db.Ping(); err != nil {
			return value.Null(), ctx.NewError(value.StateError, "failed to ping database: %v", err)
		}

		id := ctx.NextHandleID()
		dbMu.Lock()
		dbConnections[id] = db
		dbMu.Unlock()
		return value.I64(id), nil
	})
}

func fnDbQuery() value.Value {
	return value.NewFunction("db_query", 2, -1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		id, ok := unpackInt(args[0], 0)
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "db_query expects a connection handle, got %s", args[0].Kind())
		}
		query, ok := unpackString(args[1], "")
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "db_query expects a sql string, got %s", args[1].Kind())
		}

		dbMu.Lock()
		db, haveDb := dbConnections[id]
		tx, haveTx := dbTransactions[id]
		dbMu.Unlock()
		if !haveDb && !haveTx {
			return value.Null(), ctx.NewError(value.StateError, "invalid connection handle %d", id)
		}

		params := marshalParams(args[2:])

		var rows *sql.Rows
		var err error
		if haveTx {
			rows, err = tx.Query(query, params...)
		} else {
			rows, err = db.Query(query, params...)
		}
		if err != nil {
			return value.Null(), ctx.NewError(value.StateError, "query failed: %v", err)
		}
		defer rows.Close()

		return renderRows(ctx, rows)
	})
}

func fnDbExec() value.Value {
	return value.NewFunction("db_exec", 2, -1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		id, ok := unpackInt(args[0], 0)
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "db_exec expects a connection handle, got %s", args[0].Kind())
		}
		query, ok := unpackString(args[1], "")
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "db_exec expects a sql string, got %s", args[1].Kind())
		}

		dbMu.Lock()
		db, haveDb := dbConnections[id]
		tx, haveTx := dbTransactions[id]
		dbMu.Unlock()
		if !haveDb && !haveTx {
			return value.Null(), ctx.NewError(value.StateError, "invalid connection handle %d", id)
		}

		params := marshalParams(args[2:])

		var result sql.Result
		var err error
		if haveTx {
			result, err = tx.Exec(query, params...)
		} else {
			result, err = db.Exec(query, params...)
		}
		if err != nil {
			return value.Null(), ctx.NewError(value.StateError, "exec failed: %v", err)
		}

		affected, _ := result.RowsAffected()
		lastID, _ := result.LastInsertId()

		out := value.NewRecord()
		rec, _ := out.AsRecord()
		PutInt(rec, "rows_affected", affected)
		PutInt(rec, "last_insert_id", lastID)
		return out, nil
	})
}

func fnDbBegin() value.Value {
	return value.NewFunction("db_begin", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		id, ok := unpackInt(args[0], 0)
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "db_begin expects a connection handle, got %s", args[0].Kind())
		}

		dbMu.Lock()
		db, haveDb := dbConnections[id]
		dbMu.Unlock()
		if !haveDb {
			return value.Null(), ctx.NewError(value.StateError, "invalid connection handle %d", id)
		}

		tx, err := db.Begin()
		if err != nil {
			return value.Null(), ctx.NewError(value.StateError, "begin failed: %v", err)
		}

		txID := ctx.NextHandleID()
		dbMu.Lock()
		dbTransactions[txID] = tx
		dbMu.Unlock()
		return value.I64(txID), nil
	})
}

func fnDbCommit() value.Value {
	return value.NewFunction("db_commit", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		return finishTx(ctx, args[0], true)
	})
}

func fnDbRollback() value.Value {
	return value.NewFunction("db_rollback", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		return finishTx(ctx, args[0], false)
	})
}

func finishTx(ctx value.HostContext, handle value.Value, commit bool) (value.Value, *value.RuntimeError) {
	id, ok := unpackInt(handle, 0)
	if !ok {
		return value.Null(), ctx.NewError(value.TypeError, "expected a transaction handle, got %s", handle.Kind())
	}

	dbMu.Lock()
	tx, haveTx := dbTransactions[id]
	delete(dbTransactions, id)
	dbMu.Unlock()
	if !haveTx {
		return value.Null(), ctx.NewError(value.StateError, "invalid transaction handle %d", id)
	}

	var err error
	if commit {
		err = tx.Commit()
	} else {
		err = tx.Rollback()
	}
	if err != nil {
		return value.Null(), ctx.NewError(value.StateError, "transaction finish failed: %v", err)
	}
	return value.Bool(true), nil
}

func fnDbDisconnect() value.Value {
	return value.NewFunction("db_disconnect", 1, 1, nil, func(ctx value.HostContext, _ *value.Env, args []value.Value) (value.Value, *value.RuntimeError) {
		id, ok := unpackInt(args[0], 0)
		if !ok {
			return value.Null(), ctx.NewError(value.TypeError, "db_disconnect expects a connection handle, got %s", args[0].Kind())
		}

		dbMu.Lock()
		db, haveDb := dbConnections[id]
		delete(dbConnections, id)
		dbMu.Unlock()
		if !haveDb {
			return value.Null(), ctx.NewError(value.StateError, "invalid connection handle %d", id)
		}
		if err := db.Close(); err != nil {
			return value.Null(), ctx.NewError(value.StateError, "disconnect failed: %v", err)
		}
		return value.Bool(true), nil
	})
}

// marshalParams lowers runtime values into driver-friendly Go types.
func marshalParams(args []value.Value) []interface{} {
	params := make([]interface{}, len(args))
	for i, arg := range args {
		switch arg.Kind() {
		case value.KindNull:
			params[i] = nil
		case value.KindBool:
			b, _ := arg.AsBool()
			params[i] = b
		case value.KindF32, value.KindF64:
			f, _ := arg.AsFloat()
			params[i] = f
		case value.KindString:
			s, _ := arg.AsString()
			params[i] = s.Text
		case value.KindBuffer:
			b, _ := arg.AsBuffer()
			params[i] = b.Data
		default:
			if n, err := arg.AsInt(); err == nil {
				params[i] = n
			} else {
				params[i] = arg.Inspect()
			}
		}
	}
	return params
}

// renderRows marshals a result set into an owned array of records, one
// record per row in column order.
func renderRows(ctx value.HostContext, rows *sql.Rows) (value.Value, *value.RuntimeError) {
	cols, err := rows.Columns()
	if err != nil {
		return value.Null(), ctx.NewError(value.StateError, "failed to read columns: %v", err)
	}

	out := value.NewArray(0)
	arr, _ := out.AsArray()

	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			value.Release(out)
			return value.Null(), ctx.NewError(value.StateError, "failed to scan row: %v", err)
		}

		rowVal := value.NewRecord()
		rec, _ := rowVal.AsRecord()
		for i, col := range cols {
			cell := columnToValue(raw[i])
			rec.SetField(col, cell)
			value.Release(cell)
		}
		arr.Append(rowVal)
		value.Release(rowVal)
	}
	if err := rows.Err(); err != nil {
		value.Release(out)
		return value.Null(), ctx.NewError(value.StateError, "row iteration failed: %v", err)
	}

	return out, nil
}

func columnToValue(raw interface{}) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(v)
	case int64:
		return value.I64(v)
	case float64:
		return value.F64(v)
	case []byte:
		// Drivers frequently hand text columns back as []byte.
		return value.NewString(string(v))
	case string:
		return value.NewString(v)
	default:
		return value.NewString(fmt.Sprintf("%v", v))
	}
}
