package backend

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tav360/crm-backend/core/csql"
	"github.com/tav360/crm-backend/core/registry"
)

const (
	contactReadQuery = `SELECT id, full_name, email, created_date, updated_date FROM public."contacts" `
)

func newTestBackend(t *testing.T, policy UnknownKeyPolicy) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalogue := registry.MustNew([]registry.EntityDescriptor{
		{
			Name:  "contact",
			Table: "contacts",
			Fields: []registry.Field{
				{Name: "full_name", Type: registry.String, Required: true},
				{Name: "email", Type: registry.String},
			},
		},
	})

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	New(&Builder{
		DB:               &csql.DB{DB: db, Schema: "public"},
		Router:           api,
		Registry:         catalogue,
		UnknownKeyPolicy: policy,
	})
	return router, mock
}

func doRequest(router *mux.Router, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func contactRow(id int64, fullName, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "full_name", "email", "created_date", "updated_date"}).
		AddRow(id, fullName, email, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), nil)
}

func TestCreateFiltersServerManagedKeys(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO public."contacts" (full_name, email) VALUES($1,$2) RETURNING id, full_name, email, created_date, updated_date;`)).
		WithArgs("Dana Levi", "dana@example.com").
		WillReturnRows(contactRow(1, "Dana Levi", "dana@example.com"))
	mock.ExpectCommit()

	w := doRequest(router, http.MethodPost, "/api/contact",
		`{"id": 999, "full_name": "Dana Levi", "email": "dana@example.com", "created_date": "2020-01-01T00:00:00Z", "bogus": true}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var object map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &object))
	assert.Equal(t, float64(1), object["id"])
	assert.Equal(t, "Dana Levi", object["full_name"])
	assert.NotContains(t, object, "bogus")
	assert.Nil(t, object["updated_date"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsUnknownKeys(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyReject)
	w := doRequest(router, http.MethodPost, "/api/contact", `{"full_name": "Dana", "bogus": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `unknown field "bogus"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUniqueViolation(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO public."contacts"`)).
		WithArgs("Dana Levi").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	w := doRequest(router, http.MethodPost, "/api/contact", `{"full_name": "Dana Levi"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "unique constraint violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMissingRequiredField(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO public."contacts"`)).
		WithArgs("dana@example.com").
		WillReturnError(&pq.Error{Code: "23502"})
	mock.ExpectRollback()

	w := doRequest(router, http.MethodPost, "/api/contact", `{"email": "dana@example.com"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "missing required field")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBadFieldType(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	w := doRequest(router, http.MethodPost, "/api/contact", `{"full_name": 42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "field full_name must be a string")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadOne(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectQuery(regexp.QuoteMeta(contactReadQuery+"WHERE id = $1;")).
		WithArgs(int64(7)).
		WillReturnRows(contactRow(7, "Dana Levi", "dana@example.com"))

	w := doRequest(router, http.MethodGet, "/api/contact/7", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var object map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &object))
	assert.Equal(t, float64(7), object["id"])
	assert.Equal(t, "2026-08-01T12:00:00Z", object["created_date"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadNotFound(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectQuery(regexp.QuoteMeta(contactReadQuery + "WHERE id = $1;")).
		WithArgs(int64(42)).
		WillReturnError(csql.ErrNoRows)

	w := doRequest(router, http.MethodGet, "/api/contact/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "contact not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadInvalidID(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	w := doRequest(router, http.MethodGet, "/api/contact/notanumber", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(contactReadQuery+"WHERE id = $1 FOR UPDATE;")).
		WithArgs(int64(7)).
		WillReturnRows(contactRow(7, "Dana Levi", "dana@example.com"))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE public."contacts" SET email = $2, updated_date = now() WHERE id = $1 RETURNING id, full_name, email, created_date, updated_date;`)).
		WithArgs(int64(7), "new@example.com").
		WillReturnRows(contactRow(7, "Dana Levi", "new@example.com"))
	mock.ExpectCommit()

	w := doRequest(router, http.MethodPut, "/api/contact/7", `{"email": "new@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var object map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &object))
	assert.Equal(t, "new@example.com", object["email"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWithoutChanges(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(contactReadQuery+"WHERE id = $1 FOR UPDATE;")).
		WithArgs(int64(7)).
		WillReturnRows(contactRow(7, "Dana Levi", "dana@example.com"))
	mock.ExpectCommit()

	w := doRequest(router, http.MethodPut, "/api/contact/7", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var object map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &object))
	assert.Equal(t, "Dana Levi", object["full_name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNotFound(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(contactReadQuery + "WHERE id = $1 FOR UPDATE;")).
		WithArgs(int64(42)).
		WillReturnError(csql.ErrNoRows)
	mock.ExpectRollback()

	w := doRequest(router, http.MethodPut, "/api/contact/42", `{"email": "x@example.com"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM public."contacts" WHERE id = $1 RETURNING id;`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	w := doRequest(router, http.MethodDelete, "/api/contact/7", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "contact deleted successfully")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNotFound(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM public."contacts" WHERE id = $1 RETURNING id;`)).
		WithArgs(int64(42)).
		WillReturnError(csql.ErrNoRows)

	w := doRequest(router, http.MethodDelete, "/api/contact/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReferencedRecord(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM public."contacts" WHERE id = $1 RETURNING id;`)).
		WithArgs(int64(7)).
		WillReturnError(&pq.Error{Code: "23503"})

	w := doRequest(router, http.MethodDelete, "/api/contact/7", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "referenced record does not exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	rows := contactRow(1, "Dana Levi", "dana@example.com").
		AddRow(2, "Yossi Cohen", "yossi@example.com", time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC), nil)
	mock.ExpectQuery(regexp.QuoteMeta(contactReadQuery+"LIMIT $1;")).
		WithArgs(100).
		WillReturnRows(rows)

	w := doRequest(router, http.MethodGet, "/api/contact", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Yossi Cohen", list[1]["full_name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrderByDescending(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectQuery(regexp.QuoteMeta(contactReadQuery+"ORDER BY created_date DESC LIMIT $1;")).
		WithArgs(5).
		WillReturnRows(contactRow(1, "Dana Levi", "dana@example.com"))

	w := doRequest(router, http.MethodGet, "/api/contact?order_by=-created_date&limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnknownOrderByIgnored(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	mock.ExpectQuery(regexp.QuoteMeta(contactReadQuery+"LIMIT $1;")).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "created_date", "updated_date"}))

	w := doRequest(router, http.MethodGet, "/api/contact?order_by=bogus", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnknownOrderByRejected(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyReject)
	w := doRequest(router, http.MethodGet, "/api/contact?order_by=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLimitOutOfRange(t *testing.T) {
	router, mock := newTestBackend(t, UnknownKeyIgnore)
	for _, limit := range []string{"0", "1001", "notanumber"} {
		w := doRequest(router, http.MethodGet, "/api/contact?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %s", limit)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
