package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/academia/sims/apps/api/echo"
	"github.com/academia/sims/core"
	"github.com/academia/sims/core/user"
	auditsvc "github.com/academia/sims/services/audit"
	"github.com/academia/sims/testutil"
)

type apiEnv struct {
	*testutil.Env
	server *echoapi.Server
	logins *bytes.Buffer
}

func setup(t *testing.T, opts ...func(conf *core.Config)) *apiEnv {
	t.Helper()

	env := testutil.NewEnv(t, append([]func(conf *core.Config){func(conf *core.Config) {
		conf.Debug = false
		conf.SecretKey = "test-secret"
		conf.Server.DisableReqLogs = true
	}}, opts...)...)
	validate, translator := echoapi.NewValidator()
	logins := new(bytes.Buffer)

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          env.Conf,
		Logger:        env.Logger,
		Logins:        auditsvc.NewLoginLog(logins),
		Validate:      validate,
		Translator:    translator,
		UserSvc:       env.Users,
		CatalogSvc:    env.Catalog,
		StudentSvc:    env.Students,
		FacultySvc:    env.Faculty,
		LedgerSvc:     env.Ledger,
		DashboardSvc:  env.Dashboards,
		TranscriptSvc: env.Transcripts,
	})
	return &apiEnv{Env: env, server: server, logins: logins}
}

func (env *apiEnv) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := env.server.TokenFor(usr)
	require.NoError(t, err)
	return token
}

// do sends a JSON request as the holder of token, if any.
func (env *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	token    string
	body     interface{}
	wantCode int
}

func (env *apiEnv) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}
