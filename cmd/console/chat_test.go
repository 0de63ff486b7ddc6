package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vehicle-bot/internal/integrations/lookup"
	"vehicle-bot/internal/state"
	"vehicle-bot/internal/turnlog"
	"vehicle-bot/internal/usecase"
)

const providerPayload = `{
	"transKey": "abc",
	"response": {
		"regNo": "KA01AB1234",
		"owner": "A KUMAR",
		"cubicCapacity": 1197,
		"puccNumber": "PUC-1"
	}
}`

func newProvider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		props, _ := body["Props"].([]any)
		if len(props) != 1 || props[0] != "KA01AB1234" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(providerPayload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newConsoleRouter(t *testing.T, providerURL string) (*usecase.Router, *turnlog.FileRecorder) {
	t.Helper()
	client, err := lookup.NewClient(providerURL, map[string]any{"Source": "console"}, "session=1")
	require.NoError(t, err)
	recorder, err := turnlog.NewFileRecorder(filepath.Join(t.TempDir(), "bot_logs.txt"))
	require.NoError(t, err)
	router, err := usecase.NewRouter(client, state.NewMemoryStore(), recorder)
	require.NoError(t, err)
	return router, recorder
}

func TestRunChat_Conversation(t *testing.T) {
	srv := newProvider(t)
	router, recorder := newConsoleRouter(t, srv.URL)

	in := strings.NewReader("hello\n\nsearch vehicle\nKA01AB1234\nsearch vehicle\nBADNUM\n/quit\nhello\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), in, &out, router, "console", ""))

	replies := strings.Split(strings.TrimSuffix(out.String(), "\n\n"), "\n\n")
	require.Equal(t, "Hello! How can I help you today?", replies[0])
	require.Equal(t, "Please enter the vehicle registration number.", replies[1])
	require.Equal(t, "*Vehicle registration Details:*", replies[2])
	require.Contains(t, out.String(), "*📆Registration Number:* KA01AB1234")
	require.Contains(t, out.String(), "*🔩Cubic Capacity:* 1197 cc")
	require.Contains(t, out.String(), "*🔧Engine Number:* N/A")
	require.True(t, strings.HasSuffix(out.String(), "Oops, we don't have data.\n\n"))

	records, err := recorder.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "console:console", records[0].ParticipantKey)
	require.Equal(t, "KA01AB1234", records[0].Input)
	require.NotContains(t, records[0].Result, "transKey")
	require.Nil(t, records[0].Error)
	require.Equal(t, "BADNUM", records[1].Input)
	require.NotNil(t, records[1].Error)
}

func TestRunChat_SwitchParticipant(t *testing.T) {
	srv := newProvider(t)
	router, _ := newConsoleRouter(t, srv.URL)

	in := strings.NewReader("search vehicle\n/as bob\nhello\n/as alice\nKA01AB1234\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), in, &out, router, "group", "alice"))

	text := out.String()
	require.Contains(t, text, "now chatting as group:bob")
	require.Contains(t, text, "Hello! How can I help you today?")
	require.Contains(t, text, "*📆Registration Number:* KA01AB1234")
}

func TestRunChat_RouterErrorStops(t *testing.T) {
	srv := newProvider(t)
	router, _ := newConsoleRouter(t, srv.URL)

	var out bytes.Buffer
	err := runChat(context.Background(), strings.NewReader("hello\n"), &out, router, " ", "")
	require.Error(t, err)
	require.Empty(t, out.String())
}

func TestLookupCommand(t *testing.T) {
	srv := newProvider(t)
	for _, k := range []string{"API_URL", "API_BODY", "COOKIES"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("API_URL="+srv.URL+"\nAPI_BODY={\"Source\":\"cli\"}\nCOOKIES=session=1\n"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--env-file", envPath, "lookup", "KA01AB1234"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		envFile = ".env"
	})

	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), "*🙍‍♂️Owner Name:* A KUMAR")
}
