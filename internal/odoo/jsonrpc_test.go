package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedCall struct {
	Path    string
	Request struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  struct {
			Service string            `json:"service"`
			Method  string            `json:"method"`
			Args    []json.RawMessage `json:"args"`
		} `json:"params"`
	}
}

// newJSONRPCServer answers every call with the given status and body and
// records the decoded requests.
func newJSONRPCServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedCall) {
	t.Helper()
	var calls []capturedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c capturedCall
		c.Path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c.Request))
		calls = append(calls, c)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestJSONRPC(t *testing.T, url string) *JSONRPCClient {
	t.Helper()
	c, err := NewJSONRPC(url+"/", "prod", "portal@example.com", "key")
	require.NoError(t, err)
	return c
}

func TestNewJSONRPC_RejectsBadURL(t *testing.T) {
	_, err := NewJSONRPC("ftp://erp.example.com", "db", "u", "k")
	require.Error(t, err)

	_, err = NewJSONRPC("://bad", "db", "u", "k")
	require.Error(t, err)
}

func TestNew_SelectsProtocol(t *testing.T) {
	c, err := New("", "https://erp.example.com", "db", "u", "k")
	require.NoError(t, err)
	assert.IsType(t, &JSONRPCClient{}, c)

	c, err = New(ProtocolXMLRPC, "https://erp.example.com", "db", "u", "k")
	require.NoError(t, err)
	assert.IsType(t, &XMLRPCClient{}, c)

	_, err = New("soap", "https://erp.example.com", "db", "u", "k")
	assert.True(t, errors.Is(err, ErrUnsupportedProtocol))
}

func TestJSONRPC_Authenticate(t *testing.T) {
	srv, calls := newJSONRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":7}`)
	c := newTestJSONRPC(t, srv.URL)

	uid, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), uid)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/jsonrpc", call.Path)
	assert.Equal(t, "2.0", call.Request.JSONRPC)
	assert.Equal(t, "call", call.Request.Method)
	assert.Equal(t, "common", call.Request.Params.Service)
	assert.Equal(t, "authenticate", call.Request.Params.Method)
	require.Len(t, call.Request.Params.Args, 4)
	assert.JSONEq(t, `"prod"`, string(call.Request.Params.Args[0]))
	assert.JSONEq(t, `"portal@example.com"`, string(call.Request.Params.Args[1]))
	assert.JSONEq(t, `"key"`, string(call.Request.Params.Args[2]))
}

func TestJSONRPC_AuthenticateRejected(t *testing.T) {
	srv, _ := newJSONRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":false}`)
	c := newTestJSONRPC(t, srv.URL)

	uid, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), uid)
}

func TestJSONRPC_TransportError(t *testing.T) {
	srv, _ := newJSONRPCServer(t, http.StatusBadGateway, `upstream down`)
	c := newTestJSONRPC(t, srv.URL)

	_, err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
	assert.Equal(t, "upstream down", te.Body)
}

func TestJSONRPC_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestJSONRPC(t, url)
	_, err := c.Authenticate(context.Background())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
}

func TestJSONRPC_ProtocolError(t *testing.T) {
	srv, _ := newJSONRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{
		"code":200,"message":"Odoo Server Error",
		"data":{"name":"builtins.KeyError","message":"'tour.passenger'"}}}`)
	c := newTestJSONRPC(t, srv.URL)

	_, err := c.SearchRead(context.Background(), 2, "tour.passenger", Domain{{"token", "=", "t"}}, Fields{"id"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOdooRPC))
	assert.False(t, errors.Is(err, ErrTransport))

	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 200, pe.Code)
	assert.Equal(t, "Odoo Server Error", pe.Message)
	assert.Equal(t, "builtins.KeyError", pe.Data["name"])
	assert.Contains(t, err.Error(), "'tour.passenger'")
}

func TestJSONRPC_ProtocolErrorInvalidModel(t *testing.T) {
	srv, _ := newJSONRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{
		"code":200,"message":"Odoo Server Error","data":{"message":"The model does not exist"}}}`)
	c := newTestJSONRPC(t, srv.URL)

	_, err := c.SearchRead(context.Background(), 2, "nope", nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidModel))
}

func TestJSONRPC_InvalidResponse(t *testing.T) {
	srv, _ := newJSONRPCServer(t, http.StatusOK, `<html>maintenance</html>`)
	c := newTestJSONRPC(t, srv.URL)

	_, err := c.Authenticate(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestJSONRPC_SearchRead(t *testing.T) {
	srv, calls := newJSONRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":[
		{"id":1,"first_name":"Ana","departure_id":[5,"Iceland"]},
		{"id":2,"first_name":false,"departure_id":false}]}`)
	c := newTestJSONRPC(t, srv.URL)

	records, err := c.SearchRead(context.Background(), 2, "tour.passenger", Domain{{"token", "=", "tok"}}, Fields{"id", "first_name"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].ID())
	assert.Equal(t, "Ana", records[0]["first_name"])
	assert.Equal(t, false, records[1]["first_name"])

	call := (*calls)[0]
	assert.Equal(t, "object", call.Request.Params.Service)
	assert.Equal(t, "execute_kw", call.Request.Params.Method)
	require.Len(t, call.Request.Params.Args, 7)
	assert.JSONEq(t, `2`, string(call.Request.Params.Args[1]))
	assert.JSONEq(t, `"tour.passenger"`, string(call.Request.Params.Args[3]))
	assert.JSONEq(t, `"search_read"`, string(call.Request.Params.Args[4]))
	assert.JSONEq(t, `[[["token","=","tok"]]]`, string(call.Request.Params.Args[5]))
	assert.JSONEq(t, `{"fields":["id","first_name"]}`, string(call.Request.Params.Args[6]))
}

func TestJSONRPC_SearchReadFalsyResult(t *testing.T) {
	for _, body := range []string{
		`{"jsonrpc":"2.0","id":1,"result":false}`,
		`{"jsonrpc":"2.0","id":1,"result":null}`,
		`{"jsonrpc":"2.0","id":1,"result":[]}`,
	} {
		srv, _ := newJSONRPCServer(t, http.StatusOK, body)
		c := newTestJSONRPC(t, srv.URL)

		records, err := c.SearchRead(context.Background(), 2, "tour.passenger", nil, nil)
		require.NoError(t, err, body)
		assert.NotNil(t, records, body)
		assert.Empty(t, records, body)
	}
}

func TestJSONRPC_Write(t *testing.T) {
	srv, calls := newJSONRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":true}`)
	c := newTestJSONRPC(t, srv.URL)

	ok, err := c.Write(context.Background(), 2, "tour.passenger", 11, Values{"notes": "hi", "birth_date": false})
	require.NoError(t, err)
	assert.True(t, ok)

	call := (*calls)[0]
	assert.JSONEq(t, `"write"`, string(call.Request.Params.Args[4]))
	assert.JSONEq(t, `[[11],{"notes":"hi","birth_date":false}]`, string(call.Request.Params.Args[5]))
	assert.JSONEq(t, `{}`, string(call.Request.Params.Args[6]))
}

func TestJSONRPC_WriteNotConfirmed(t *testing.T) {
	srv, _ := newJSONRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":false}`)
	c := newTestJSONRPC(t, srv.URL)

	ok, err := c.Write(context.Background(), 2, "tour.passenger", 11, Values{"notes": "hi"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSONRPC_ContextCanceled(t *testing.T) {
	srv, calls := newJSONRPCServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":7}`)
	c := newTestJSONRPC(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Authenticate(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, *calls)
}

func TestDomain_ToRPC(t *testing.T) {
	d := Domain{{"|"}, {"token", "=", "a"}, {"token", "=", "b"}}
	assert.Equal(t, []interface{}{"|", []interface{}{"token", "=", "a"}, []interface{}{"token", "=", "b"}}, d.ToRPC())

	var empty Domain
	assert.Equal(t, []interface{}{}, empty.ToRPC())
}

func TestAsInt64(t *testing.T) {
	for _, v := range []interface{}{7, int32(7), int64(7), float64(7)} {
		n, ok := AsInt64(v)
		assert.True(t, ok)
		assert.Equal(t, int64(7), n)
	}
	for _, v := range []interface{}{7.5, "7", nil, false} {
		_, ok := AsInt64(v)
		assert.False(t, ok, "%#v", v)
	}
}
