package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vehicle-bot/internal/config"
)

const sampleResponse = `{
	"transKey": "tk-1",
	"message": "ok",
	"description": "success",
	"code": 200,
	"response": {
		"transKey": "tk-2",
		"statusDesc": "ACTIVE",
		"dataStatus": "fresh",
		"eDate": "2024-01-01",
		"lmDate": "2024-01-02",
		"manufacturerMonthYear": "01/2019",
		"manufacturerYear": 2019,
		"vehicleAge": "5 years",
		"puccNumber": "PUC123",
		"puccValidUpto": "2025-01-01",
		"presentAddress": "Somewhere",
		"insuranceExpired": false,
		"status": "ACTIVE",
		"regNo": "KA01AB1234",
		"rtoCode": "KA01",
		"cubicCapacity": 1197,
		"owner": "A KUMAR",
		"financerName": null
	}
}`

type capturedRequest struct {
	method      string
	contentType string
	cookie      string
	body        map[string]any
}

func newProvider(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.method = r.Method
			captured.contentType = r.Header.Get("Content-Type")
			captured.cookie = r.Header.Get("Cookie")
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &captured.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(url, map[string]any{"Category": "RC", "Props": []string{"placeholder"}}, "session=abc;  region=south",
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	return c
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	var lookupErr *Error
	require.ErrorAs(t, err, &lookupErr)
	require.Equal(t, kind, lookupErr.Kind)
}

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient(" ", nil, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "url")

	c, err := NewClient("http://provider", nil, "")
	require.NoError(t, err)
	require.Equal(t, "Props", c.identifierField)
	require.NotNil(t, c.template)
}

func TestNewClient_CopiesTemplate(t *testing.T) {
	tmpl := map[string]any{"Category": "RC"}
	c, err := NewClient("http://provider", tmpl, "")
	require.NoError(t, err)

	tmpl["Category"] = "changed"
	require.Equal(t, "RC", c.template["Category"])
}

func TestNormalizeCookies(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "pairs", raw: "session=abc;  region=south", want: "session=abc; region=south"},
		{name: "empty", raw: "", want: ""},
		{name: "trailing separator", raw: "a=1; ; b=2;", want: "a=1; b=2"},
		{name: "attributes without value", raw: "a=b; Secure; HttpOnly", want: "a=b"},
		{name: "missing name", raw: "=novalue; a=1", want: "a=1"},
		{name: "non-ascii value", raw: "a=b; c=café", want: "a=b; c=café"},
		{name: "percent encoded", raw: "sid=s%3Aabc.def", want: "sid=s:abc.def"},
		{name: "invalid escape kept", raw: "sid=100%zz", want: "sid=100%zz"},
		{name: "quoted value", raw: `q="hello world"`, want: "q=hello world"},
		{name: "first duplicate wins", raw: "a=1; a=2; b=3", want: "a=1; b=3"},
		{name: "equals inside value", raw: "token=abc==; x=1", want: "token=abc==; x=1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NormalizeCookies(tc.raw))
		})
	}
}

func TestNewClient_ToleratesCookieAttributes(t *testing.T) {
	c, err := NewClient("http://provider", nil, "a=b; HttpOnly")
	require.NoError(t, err)
	require.Equal(t, "a=b", c.cookie)
}

func TestNewClientFromConfig(t *testing.T) {
	captured := &capturedRequest{}
	srv := newProvider(t, http.StatusOK, sampleResponse, captured)

	c, err := NewClientFromConfig(config.LookupConfig{
		URL:             srv.URL,
		Body:            `{"Category":"RC"}`,
		Cookies:         "session=abc; Secure",
		IdentifierField: "RegNo",
		Timeout:         2 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, c.httpClient.Timeout)

	_, err = c.Lookup(context.Background(), "KA01AB1234")
	require.NoError(t, err)
	require.Equal(t, "session=abc", captured.cookie)
	require.Equal(t, "RC", captured.body["Category"])
	require.Equal(t, []any{"KA01AB1234"}, captured.body["RegNo"])
}

func TestNewClientFromConfig_Invalid(t *testing.T) {
	_, err := NewClientFromConfig(config.LookupConfig{Timeout: time.Second})
	require.ErrorContains(t, err, "url")

	_, err = NewClientFromConfig(config.LookupConfig{URL: "http://provider", Body: "[1]", Timeout: time.Second})
	require.Error(t, err)
}

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate(`{"Category":"RC","Limit":10}`)
	require.NoError(t, err)
	require.Equal(t, "RC", tmpl["Category"])
	require.Equal(t, json.Number("10"), tmpl["Limit"])

	tmpl, err = ParseTemplate("")
	require.NoError(t, err)
	require.Empty(t, tmpl)

	_, err = ParseTemplate(`[1,2]`)
	require.Error(t, err)

	_, err = ParseTemplate(`null`)
	require.Error(t, err)
}

func TestBuildRequestBody_DoesNotMutateTemplate(t *testing.T) {
	c := newTestClient(t, "http://provider")
	body := c.buildRequestBody("KA01AB1234")
	require.Equal(t, []string{"KA01AB1234"}, body["Props"])
	require.Equal(t, "RC", body["Category"])
	require.Equal(t, []string{"placeholder"}, c.template["Props"])
}

func TestWithIdentifierField(t *testing.T) {
	c, err := NewClient("http://provider", nil, "", WithIdentifierField("regNo"))
	require.NoError(t, err)
	body := c.buildRequestBody("KA01AB1234")
	require.Equal(t, []string{"KA01AB1234"}, body["regNo"])
	_, hasDefault := body["Props"]
	require.False(t, hasDefault)
}

func TestLookup_HappyPath(t *testing.T) {
	var captured capturedRequest
	srv := newProvider(t, http.StatusOK, sampleResponse, &captured)
	c := newTestClient(t, srv.URL)

	rec, err := c.Lookup(context.Background(), "KA01AB1234")
	require.NoError(t, err)

	require.Equal(t, http.MethodPost, captured.method)
	require.Equal(t, "application/json", captured.contentType)
	require.Equal(t, "session=abc; region=south", captured.cookie)
	require.Equal(t, "RC", captured.body["Category"])
	require.Equal(t, []any{"KA01AB1234"}, captured.body["Props"])

	require.Equal(t, "KA01AB1234", rec.Vehicle.RegNo.Value)
	require.Equal(t, "1197", rec.Vehicle.CubicCapacity.Value)
	require.Equal(t, "A KUMAR", rec.Vehicle.Owner.Value)
	require.False(t, rec.Vehicle.FinancerName.Valid)
	require.False(t, rec.Vehicle.Engine.Valid)

	require.NotContains(t, rec.Document, "transKey")
	require.Contains(t, rec.Document, "code")
	resp := rec.Document["response"].(map[string]any)
	require.NotContains(t, resp, "puccNumber")
	require.Contains(t, resp, "rtoCode")
}

func TestLookup_Non200(t *testing.T) {
	srv := newProvider(t, http.StatusUnauthorized, `{"error":"cookie expired"}`, nil)
	c := newTestClient(t, srv.URL)

	_, err := c.Lookup(context.Background(), "KA01AB1234")
	requireKind(t, err, KindProvider)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.HTTPStatusCode())
	require.Contains(t, err.Error(), "401")
}

func TestLookup_InvalidJSON(t *testing.T) {
	srv := newProvider(t, http.StatusOK, `not-json`, nil)
	c := newTestClient(t, srv.URL)

	_, err := c.Lookup(context.Background(), "KA01AB1234")
	requireKind(t, err, KindProvider)
	require.Contains(t, err.Error(), "decode response")
}

func TestLookup_MissingResponseObject(t *testing.T) {
	srv := newProvider(t, http.StatusOK, `{"message":"no record found","response":null}`, nil)
	c := newTestClient(t, srv.URL)

	_, err := c.Lookup(context.Background(), "BADNUM")
	requireKind(t, err, KindProvider)
	require.Contains(t, err.Error(), "no response object")
}

func TestLookup_NetworkError(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", nil, "", WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "KA01AB1234")
	requireKind(t, err, KindTransport)
	require.Contains(t, err.Error(), "request failed")
}

func TestLookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Lookup(context.Background(), "KA01AB1234")
	requireKind(t, err, KindTransport)
}

func TestLookup_CanceledContext(t *testing.T) {
	srv := newProvider(t, http.StatusOK, sampleResponse, nil)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Lookup(ctx, "KA01AB1234")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}
