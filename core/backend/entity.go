package backend

import (
	"database/sql"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/lib/pq"

	"github.com/tav360/crm-backend/core/csql"
	"github.com/tav360/crm-backend/core/logger"
	"github.com/tav360/crm-backend/core/registry"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

const dateFormat = "2006-01-02"

func sqlColumnType(t registry.FieldType) string {
	switch t {
	case registry.Text:
		return "text"
	case registry.Integer:
		return "bigint"
	case registry.Numeric:
		return "double precision"
	case registry.Boolean:
		return "boolean"
	case registry.Date:
		return "date"
	case registry.Timestamp:
		return "timestamp"
	case registry.StringArray:
		return "varchar[]"
	default:
		return "varchar"
	}
}

// scanDestination returns a fresh scan target for a column of the given type
func scanDestination(t registry.FieldType) interface{} {
	switch t {
	case registry.Integer:
		return &sql.NullInt64{}
	case registry.Numeric:
		return &sql.NullFloat64{}
	case registry.Boolean:
		return &sql.NullBool{}
	case registry.Date, registry.Timestamp:
		return &sql.NullTime{}
	case registry.StringArray:
		return &pq.StringArray{}
	default:
		return &sql.NullString{}
	}
}

// jsonValue converts a scanned column value into its JSON representation.
// Null columns become JSON null, dates and timestamps become strings.
func jsonValue(t registry.FieldType, v interface{}) interface{} {
	switch value := v.(type) {
	case *sql.NullString:
		if value.Valid {
			return value.String
		}
	case *sql.NullInt64:
		if value.Valid {
			return value.Int64
		}
	case *sql.NullFloat64:
		if value.Valid {
			return value.Float64
		}
	case *sql.NullBool:
		if value.Valid {
			return value.Bool
		}
	case *sql.NullTime:
		if value.Valid {
			if t == registry.Date {
				return value.Time.Format(dateFormat)
			}
			return value.Time.UTC().Format(time.RFC3339Nano)
		}
	case *pq.StringArray:
		if *value != nil {
			return []string(*value)
		}
	}
	return nil
}

// parseTimeLiteral accepts RFC3339 timestamps, naive timestamps without
// a zone, and plain dates.
func parseTimeLiteral(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateFormat, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time literal \"%s\"", s)
}

// sqlArgument converts a JSON payload value into a driver argument for
// the given field. JSON null becomes a NULL column value.
func sqlArgument(f registry.Field, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	switch f.Type {
	case registry.String, registry.Text:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %s must be a string", f.Name)
		}
		return s, nil
	case registry.Integer:
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return nil, fmt.Errorf("field %s must be an integer", f.Name)
		}
		return int64(n), nil
	case registry.Numeric:
		n, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("field %s must be a number", f.Name)
		}
		return n, nil
	case registry.Boolean:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("field %s must be a boolean", f.Name)
		}
		return v, nil
	case registry.Date, registry.Timestamp:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %s must be a time string", f.Name)
		}
		t, err := parseTimeLiteral(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: %s", f.Name, err)
		}
		return t, nil
	case registry.StringArray:
		array, ok := value.([]interface{})
		if !ok {
			return nil, fmt.Errorf("field %s must be an array of strings", f.Name)
		}
		result := make(pq.StringArray, len(array))
		for i, element := range array {
			s, ok := element.(string)
			if !ok {
				return nil, fmt.Errorf("field %s must be an array of strings", f.Name)
			}
			result[i] = s
		}
		return result, nil
	}
	return nil, fmt.Errorf("field %s has unsupported type", f.Name)
}

// constraintError maps postgres constraint violations to client errors.
// It returns a zero status for errors that are not constraint violations.
func constraintError(err error) (int, string) {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			// unique violations are reported as code 23505
			return http.StatusUnprocessableEntity, "unique constraint violation"
		case "23502":
			// not null constraints are reported as code 23502
			return http.StatusUnprocessableEntity, "missing required field"
		case "23503":
			// 23503 is FOREIGN KEY VIOLATION
			return http.StatusUnprocessableEntity, "referenced record does not exist"
		case "22P02":
			// invalid literals are reported as invalid_text_representation
			return http.StatusBadRequest, "invalid value"
		}
	}
	return 0, ""
}

// createEntityResource creates the sql table for the entity (if requested)
// and adds the CRUD routes to the router. All SQL is precomputed from the
// descriptor; the handlers are closures over it.
func (b *Backend) createEntityResource(router *mux.Router, d *registry.EntityDescriptor) {
	schema := b.db.Schema
	this := d.Name
	table := d.Table
	nillog := logger.Default()

	columns := []string{"id"}
	for _, f := range d.Fields {
		columns = append(columns, f.Name)
	}
	columns = append(columns, "created_date", "updated_date")

	createColumns := []string{"id bigserial NOT NULL"}
	for _, f := range d.Fields {
		createColumn := f.Name + " " + sqlColumnType(f.Type)
		if f.Required {
			createColumn += " NOT NULL"
		}
		if f.References != "" {
			target, ok := b.registry.Resolve(f.References)
			if !ok {
				panic(fmt.Sprintf("entity %s references unknown entity %s", this, f.References))
			}
			createColumn += fmt.Sprintf(" REFERENCES %s.\"%s\"(id)", schema, target.Table)
		}
		createColumns = append(createColumns, createColumn)
	}
	createColumns = append(createColumns,
		"created_date timestamp NOT NULL DEFAULT now()",
		"updated_date timestamp",
		"PRIMARY KEY(id)",
	)
	createQuery := fmt.Sprintf("CREATE table IF NOT EXISTS %s.\"%s\" ", schema, table) +
		"(" + strings.Join(createColumns, ", ") + ");"

	if b.updateSchema {
		if _, err := b.db.Exec(createQuery); err != nil {
			nillog.WithError(err).Errorf("Error while updating schema when running: %s", createQuery)
			panic(fmt.Sprintf("invalid catalogue, err: %v", err))
		}
	}

	listRoute := "/" + this
	itemRoute := "/" + this + "/{" + this + "_id}"
	nillog.Debugln("  handle entity routes:", listRoute, "GET,POST")
	nillog.Debugln("  handle entity routes:", itemRoute, "GET,PUT,PATCH,DELETE")

	readQuery := "SELECT " + strings.Join(columns, ", ") + fmt.Sprintf(" FROM %s.\"%s\" ", schema, table)
	sqlWhereOne := "WHERE id = $1"
	sqlReturnObject := " RETURNING " + strings.Join(columns, ", ")
	deleteQuery := fmt.Sprintf("DELETE FROM %s.\"%s\" WHERE id = $1 RETURNING id;", schema, table)

	scanValues := func() []interface{} {
		values := make([]interface{}, len(columns))
		values[0] = new(int64)
		for i, f := range d.Fields {
			values[i+1] = scanDestination(f.Type)
		}
		values[len(columns)-2] = &sql.NullTime{}
		values[len(columns)-1] = &sql.NullTime{}
		return values
	}

	objectFromValues := func(values []interface{}) map[string]interface{} {
		object := make(map[string]interface{}, len(columns))
		object["id"] = *(values[0].(*int64))
		for i, f := range d.Fields {
			object[f.Name] = jsonValue(f.Type, values[i+1])
		}
		object["created_date"] = jsonValue(registry.Timestamp, values[len(columns)-2])
		object["updated_date"] = jsonValue(registry.Timestamp, values[len(columns)-1])
		return object
	}

	// filterObject restricts a payload to the declared field set. The
	// server-managed columns are always dropped.
	filterObject := func(payload map[string]interface{}) (map[string]interface{}, error) {
		filtered := make(map[string]interface{}, len(payload))
		for key, value := range payload {
			if key == "id" || key == "created_date" || key == "updated_date" {
				continue
			}
			if !d.HasField(key) {
				if b.unknownKeyPolicy == UnknownKeyReject {
					return nil, fmt.Errorf("unknown field \"%s\"", key)
				}
				continue
			}
			filtered[key] = value
		}
		return filtered, nil
	}

	decodePayload := func(r *http.Request) (map[string]interface{}, error) {
		payload := map[string]interface{}{}
		err := json.NewDecoder(r.Body).Decode(&payload)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("invalid json: %s", err)
		}
		return payload, nil
	}

	sortableColumn := func(name string) bool {
		for _, column := range columns {
			if column == name {
				return true
			}
		}
		return false
	}

	list := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		limit := defaultListLimit
		orderClause := ""
		var err error
		for key, array := range r.URL.Query() {
			if len(array) > 1 {
				http.Error(w, "illegal parameter array '"+key+"'", http.StatusBadRequest)
				return
			}
			value := array[0]
			switch key {
			case "limit":
				limit, err = strconv.Atoi(value)
				if err == nil && (limit < 1 || limit > maxListLimit) {
					err = fmt.Errorf("out of range")
				}
			case "order_by":
				field := value
				direction := "ASC"
				if strings.HasPrefix(field, "-") {
					field = field[1:]
					direction = "DESC"
				}
				if sortableColumn(field) {
					orderClause = "ORDER BY " + field + " " + direction + " "
				} else if b.unknownKeyPolicy == UnknownKeyReject {
					err = fmt.Errorf("unknown field \"%s\"", field)
				}
				// unknown order_by fields are ignored otherwise
			default:
				err = fmt.Errorf("unknown")
			}
			if err != nil {
				http.Error(w, "parameter '"+key+"': "+err.Error(), http.StatusBadRequest)
				return
			}
		}

		sqlQuery := readQuery + orderClause + "LIMIT $1;"
		rows, err := b.db.Query(sqlQuery, limit)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4721: cannot execute query `%s`", sqlQuery)
			http.Error(w, "Error 4721", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		response := []interface{}{}
		for rows.Next() {
			values := scanValues()
			if err := rows.Scan(values...); err != nil {
				rlog.WithError(err).Errorf("Error 4725: cannot scan values")
				http.Error(w, "Error 4725", http.StatusInternalServerError)
				return
			}
			response = append(response, objectFromValues(values))
		}
		jsonData, _ := json.MarshalWithOption(response, json.DisableHTMLEscape())
		writeJSON(w, http.StatusOK, jsonData)
	}

	read := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		params := mux.Vars(r)
		id, err := strconv.ParseInt(params[this+"_id"], 10, 64)
		if err != nil {
			badRequest(w, "invalid id")
			return
		}

		values := scanValues()
		err = b.db.QueryRow(readQuery+sqlWhereOne+";", id).Scan(values...)
		if err == csql.ErrNoRows {
			http.Error(w, this+" not found", http.StatusNotFound)
			return
		}
		if err != nil {
			rlog.WithError(err).Errorf("Error 4727: cannot QueryRow")
			http.Error(w, "Error 4727", http.StatusInternalServerError)
			return
		}
		jsonData, _ := json.MarshalWithOption(objectFromValues(values), json.DisableHTMLEscape())
		writeJSON(w, http.StatusOK, jsonData)
	}

	create := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		payload, err := decodePayload(r)
		if err != nil {
			badRequest(w, "%s", err)
			return
		}
		filtered, err := filterObject(payload)
		if err != nil {
			badRequest(w, "%s", err)
			return
		}
		if d.SchemaID != "" && b.jsonValidator != nil && b.jsonValidator.HasSchema(d.SchemaID) {
			if err := b.jsonValidator.ValidateStruct(filtered, d.SchemaID); err != nil {
				badRequest(w, "%s", err)
				return
			}
		}
		if d.Validate != nil {
			if err := d.Validate(r.Context(), filtered); err != nil {
				badRequest(w, "%s", err)
				return
			}
		}

		insertColumns := []string{}
		args := []interface{}{}
		for _, f := range d.Fields {
			value, ok := filtered[f.Name]
			if !ok {
				continue
			}
			arg, err := sqlArgument(f, value)
			if err != nil {
				badRequest(w, "%s", err)
				return
			}
			insertColumns = append(insertColumns, f.Name)
			args = append(args, arg)
		}

		insertQuery := fmt.Sprintf("INSERT INTO %s.\"%s\" ", schema, table)
		if len(insertColumns) == 0 {
			insertQuery += "DEFAULT VALUES"
		} else {
			insertQuery += "(" + strings.Join(insertColumns, ", ") + ") VALUES(" + parameterString(len(args)) + ")"
		}
		insertQuery += sqlReturnObject + ";"

		tx, err := b.db.BeginTx(r.Context(), nil)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4729: cannot BeginTx")
			http.Error(w, "Error 4729", http.StatusInternalServerError)
			return
		}
		values := scanValues()
		err = tx.QueryRow(insertQuery, args...).Scan(values...)
		if err != nil {
			tx.Rollback()
			if status, message := constraintError(err); status != 0 {
				http.Error(w, message, status)
				return
			}
			rlog.WithError(err).Errorf("Error 4731: cannot QueryRow query:`%s`", insertQuery)
			http.Error(w, "Error 4731", http.StatusInternalServerError)
			return
		}
		if err = tx.Commit(); err != nil {
			rlog.WithError(err).Errorf("Error 4732: cannot Commit")
			http.Error(w, "Error 4732", http.StatusInternalServerError)
			return
		}
		jsonData, _ := json.MarshalWithOption(objectFromValues(values), json.DisableHTMLEscape())
		writeJSON(w, http.StatusCreated, jsonData)
	}

	update := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		params := mux.Vars(r)
		id, err := strconv.ParseInt(params[this+"_id"], 10, 64)
		if err != nil {
			badRequest(w, "invalid id")
			return
		}
		payload, err := decodePayload(r)
		if err != nil {
			badRequest(w, "%s", err)
			return
		}
		filtered, err := filterObject(payload)
		if err != nil {
			badRequest(w, "%s", err)
			return
		}

		tx, err := b.db.BeginTx(r.Context(), nil)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4729: cannot BeginTx")
			http.Error(w, "Error 4729", http.StatusInternalServerError)
			return
		}

		values := scanValues()
		err = tx.QueryRow(readQuery+sqlWhereOne+" FOR UPDATE;", id).Scan(values...)
		if err == csql.ErrNoRows {
			tx.Rollback()
			http.Error(w, this+" not found", http.StatusNotFound)
			return
		}
		if err != nil {
			tx.Rollback()
			rlog.WithError(err).Errorf("Error 4730: cannot QueryRow")
			http.Error(w, "Error 4730", http.StatusInternalServerError)
			return
		}
		current := objectFromValues(values)

		// validation sees the stored record merged with the payload
		merged := make(map[string]interface{}, len(current)+len(filtered))
		for key, value := range current {
			merged[key] = value
		}
		for key, value := range filtered {
			merged[key] = value
		}
		if d.SchemaID != "" && b.jsonValidator != nil && b.jsonValidator.HasSchema(d.SchemaID) {
			if err := b.jsonValidator.ValidateStruct(merged, d.SchemaID); err != nil {
				tx.Rollback()
				badRequest(w, "%s", err)
				return
			}
		}
		if d.Validate != nil {
			if err := d.Validate(r.Context(), merged); err != nil {
				tx.Rollback()
				badRequest(w, "%s", err)
				return
			}
		}

		if len(filtered) == 0 {
			// nothing to update, read back the stored record
			if err = tx.Commit(); err != nil {
				rlog.WithError(err).Errorf("Error 4732: cannot Commit")
				http.Error(w, "Error 4732", http.StatusInternalServerError)
				return
			}
			jsonData, _ := json.MarshalWithOption(current, json.DisableHTMLEscape())
			writeJSON(w, http.StatusOK, jsonData)
			return
		}

		sets := []string{}
		args := []interface{}{id}
		for _, f := range d.Fields {
			value, ok := filtered[f.Name]
			if !ok {
				continue
			}
			arg, err := sqlArgument(f, value)
			if err != nil {
				tx.Rollback()
				badRequest(w, "%s", err)
				return
			}
			args = append(args, arg)
			sets = append(sets, f.Name+" = $"+strconv.Itoa(len(args)))
		}
		updateQuery := fmt.Sprintf("UPDATE %s.\"%s\" SET ", schema, table) +
			strings.Join(sets, ", ") + ", updated_date = now() " + sqlWhereOne + sqlReturnObject + ";"

		values = scanValues()
		err = tx.QueryRow(updateQuery, args...).Scan(values...)
		if err != nil {
			tx.Rollback()
			if status, message := constraintError(err); status != 0 {
				http.Error(w, message, status)
				return
			}
			rlog.WithError(err).Errorf("Error 4733: cannot QueryRow query:`%s`", updateQuery)
			http.Error(w, "Error 4733", http.StatusInternalServerError)
			return
		}
		if err = tx.Commit(); err != nil {
			rlog.WithError(err).Errorf("Error 4732: cannot Commit")
			http.Error(w, "Error 4732", http.StatusInternalServerError)
			return
		}
		jsonData, _ := json.MarshalWithOption(objectFromValues(values), json.DisableHTMLEscape())
		writeJSON(w, http.StatusOK, jsonData)
	}

	deleteOne := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		params := mux.Vars(r)
		id, err := strconv.ParseInt(params[this+"_id"], 10, 64)
		if err != nil {
			badRequest(w, "invalid id")
			return
		}

		var deletedID int64
		err = b.db.QueryRow(deleteQuery, id).Scan(&deletedID)
		if err == csql.ErrNoRows {
			http.Error(w, this+" not found", http.StatusNotFound)
			return
		}
		if err != nil {
			if status, message := constraintError(err); status != 0 {
				http.Error(w, message, status)
				return
			}
			rlog.WithError(err).Errorf("Error 4734: cannot QueryRow query:`%s`", deleteQuery)
			http.Error(w, "Error 4734", http.StatusInternalServerError)
			return
		}

		jsonData, _ := json.Marshal(map[string]string{"message": this + " deleted successfully"})
		writeJSON(w, http.StatusOK, jsonData)
	}

	router.HandleFunc(listRoute, list).Methods(http.MethodGet)
	router.HandleFunc(listRoute, create).Methods(http.MethodPost)
	router.HandleFunc(itemRoute, read).Methods(http.MethodGet)
	router.HandleFunc(itemRoute, update).Methods(http.MethodPut, http.MethodPatch)
	router.HandleFunc(itemRoute, deleteOne).Methods(http.MethodDelete)
}
