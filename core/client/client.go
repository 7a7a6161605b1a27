/*
Package client provides easy and fast access to the REST api.

A client built with NewWithRouter talks directly to the mux router
instead of marshalling HTTP over a socket, which makes it the tool of
choice for unit tests. NewWithURL builds a regular network client.
*/
package client

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
}

// NewWithRouter creates a client to make pseudo-REST requests to the
// backend, through the mux router.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router: router,
	}
}

// NewWithURL creates a client to make REST requests to the backend.
func NewWithURL(url string) Client {
	return Client{
		url:        url,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// WithToken returns a new client carrying the bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

func (c Client) do(method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	if c.router != nil {
		r := httptest.NewRequest(method, path, reader)
		if c.token != "" {
			r.Header.Set("Authorization", "Bearer "+c.token)
		}
		if body != nil {
			r.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		c.router.ServeHTTP(w, r)
		return w.Code, w.Body.Bytes(), nil
	}

	r, err := http.NewRequest(method, c.url+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	response, err := c.httpClient.Do(r)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, nil, err
	}
	return response.StatusCode, data, nil
}

func (c Client) request(method, path string, body interface{}, result interface{}) (int, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.MarshalWithOption(body, json.DisableHTMLEscape())
		if err != nil {
			return 0, err
		}
	}
	status, responseData, err := c.do(method, path, data)
	if err != nil {
		return status, err
	}
	if status < 200 || status >= 300 {
		return status, fmt.Errorf("%s %s: status %d: %s", method, path, status, string(responseData))
	}
	if result != nil && len(responseData) > 0 {
		if err := json.Unmarshal(responseData, result); err != nil {
			return status, err
		}
	}
	return status, nil
}

// RawGet gets the path and unmarshals the response into result
func (c Client) RawGet(path string, result interface{}) (int, error) {
	return c.request(http.MethodGet, path, nil, result)
}

// RawPost posts body to the path and unmarshals the response into result
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.request(http.MethodPost, path, body, result)
}

// RawPut puts body to the path and unmarshals the response into result
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	return c.request(http.MethodPut, path, body, result)
}

// RawDelete deletes the path
func (c Client) RawDelete(path string) (int, error) {
	return c.request(http.MethodDelete, path, nil, nil)
}

// Entity gives access to the CRUD routes of a catalogue entity.
func (c Client) Entity(name string) Entity {
	return Entity{client: c, path: "/api/" + name}
}

// Entity accesses one entity resource
type Entity struct {
	client Client
	path   string
}

// Create posts body as a new record and unmarshals the stored record
// into result
func (e Entity) Create(body interface{}, result interface{}) (int, error) {
	return e.client.RawPost(e.path, body, result)
}

// List reads up to limit records into result, with optional ordering.
// An orderBy field prefixed with "-" sorts descending.
func (e Entity) List(result interface{}, limit int, orderBy string) (int, error) {
	path := e.path + "?limit=" + strconv.Itoa(limit)
	if orderBy != "" {
		path += "&order_by=" + orderBy
	}
	return e.client.RawGet(path, result)
}

// Read reads the record with the given id into result
func (e Entity) Read(id int64, result interface{}) (int, error) {
	return e.client.RawGet(e.path+"/"+strconv.FormatInt(id, 10), result)
}

// Update puts body onto the record with the given id
func (e Entity) Update(id int64, body interface{}, result interface{}) (int, error) {
	return e.client.RawPut(e.path+"/"+strconv.FormatInt(id, 10), body, result)
}

// Delete deletes the record with the given id
func (e Entity) Delete(id int64) (int, error) {
	return e.client.RawDelete(e.path + "/" + strconv.FormatInt(id, 10))
}
