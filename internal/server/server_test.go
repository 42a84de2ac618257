package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/config"
	"github.com/dukerupert/certadmin/internal/nvpair"
	"github.com/dukerupert/certadmin/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	srv    *Server
	store  *config.SQLiteStore
	url    string
	client *admin.Client
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store, err := config.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	opts.BcryptCost = bcrypt.MinCost
	srv := New(store, DefaultSchema(), zaptest.NewLogger(t), opts)
	_, err = srv.Seed()
	require.NoError(t, err)
	require.NoError(t, srv.AddUser("admin", "secret"))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	conn, err := transport.NewHTTPConn(ts.URL, transport.Options{User: "admin", Password: "secret"})
	require.NoError(t, err)

	return &fixture{
		srv:    srv,
		store:  store,
		url:    ts.URL,
		client: admin.NewClient(conn, zaptest.NewLogger(t)),
	}
}

func TestReadSeededDefaults(t *testing.T) {
	f := newFixture(t, Options{})

	got, err := f.client.Read(context.Background(), admin.DestLog, admin.ScopeErrorLog, admin.RequestConfig,
		nvpair.Names(admin.ParamLogEnabled, admin.ParamLogLevel, admin.ParamLogBufferSize))
	require.NoError(t, err)

	assert.Equal(t, []string{admin.ParamLogEnabled, admin.ParamLogLevel, admin.ParamLogBufferSize}, got.NameList())
	assert.Equal(t, "true", got.Value(admin.ParamLogEnabled))
	assert.Equal(t, "512", got.Value(admin.ParamLogBufferSize))
}

func TestReadOmitsUnrecognizedNames(t *testing.T) {
	f := newFixture(t, Options{})

	req := nvpair.Names(admin.ParamRecoveryM, "bogus")
	got, err := f.client.Read(context.Background(), admin.DestKRA, admin.ScopeMNScheme, admin.RequestConfig, req)
	require.NoError(t, err)

	assert.Equal(t, "1", got.Value(admin.ParamRecoveryM))
	assert.Equal(t, []string{"bogus"}, admin.Missing(req, got))
}

func TestModifyThenRead(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	updates := nvpair.New(
		nvpair.Pair{Name: admin.ParamLogEnabled, Value: "True"},
		nvpair.Pair{Name: admin.ParamLogLevel, Value: "7"},
	)
	require.NoError(t, f.client.Modify(ctx, admin.DestLog, admin.ScopeSystemLog, admin.RequestConfig, updates))

	got, err := f.client.Read(ctx, admin.DestLog, admin.ScopeSystemLog, admin.RequestConfig,
		nvpair.Names(admin.ParamLogEnabled, admin.ParamLogLevel))
	require.NoError(t, err)
	assert.Equal(t, "True", got.Value(admin.ParamLogEnabled), "tokens are stored verbatim")
	assert.Equal(t, "7", got.Value(admin.ParamLogLevel))
}

func TestModifyIsAllOrNothing(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	updates := nvpair.New(
		nvpair.Pair{Name: admin.ParamRecoveryM, Value: "5"},
		nvpair.Pair{Name: "bogus", Value: "x"},
	)
	err := f.client.Modify(ctx, admin.DestKRA, admin.ScopeMNScheme, admin.RequestConfig, updates)
	require.Error(t, err)
	assert.True(t, admin.IsProtocol(err))

	got, err := f.client.Read(ctx, admin.DestKRA, admin.ScopeMNScheme, admin.RequestConfig, nvpair.Names(admin.ParamRecoveryM))
	require.NoError(t, err)
	assert.Equal(t, "1", got.Value(admin.ParamRecoveryM))
}

func TestRuleInstancesAcceptAnyParameter(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	rid := admin.RequestID("LdapCaCertMap")

	updates := nvpair.New(
		nvpair.Pair{Name: admin.ParamImplName, Value: "LdapCaSimpleMap"},
		nvpair.Pair{Name: "dnPattern", Value: "cn=$subj.cn,o=Example"},
	)
	require.NoError(t, f.client.Modify(ctx, admin.DestCA, admin.ScopeMapperRules, rid, updates))

	got, err := f.client.Read(ctx, admin.DestCA, admin.ScopeMapperRules, rid, updates)
	require.NoError(t, err)
	assert.True(t, updates.Equal(got))

	// Other instances are untouched.
	other, err := f.client.Read(ctx, admin.DestCA, admin.ScopeMapperRules, "Other", updates)
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())
}

func TestOversizedModifyIsRejectedWhole(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	rid := admin.RequestID("LdapCaCertMap")

	updates := nvpair.New(
		nvpair.Pair{Name: "dnPattern", Value: strings.Repeat("a", maxBody)},
		nvpair.Pair{Name: admin.ParamImplName, Value: "X"},
	)
	err := f.client.Modify(ctx, admin.DestCA, admin.ScopeMapperRules, rid, updates)
	require.Error(t, err)
	assert.True(t, admin.IsProtocol(err))

	got, err := f.client.Read(ctx, admin.DestCA, admin.ScopeMapperRules, rid, nvpair.Names("dnPattern", admin.ParamImplName))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len(), "nothing may be stored")
}

func TestUnknownDestinationAndScope(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.client.Read(ctx, "nosuch", admin.ScopeGeneral, admin.RequestConfig, nvpair.Names("a"))
	require.Error(t, err)
	assert.True(t, admin.IsProtocol(err))
	assert.Contains(t, err.Error(), "unknown destination")

	_, err = f.client.Read(ctx, admin.DestLog, admin.ScopeMNScheme, admin.RequestConfig, nvpair.Names("a"))
	require.Error(t, err)
	assert.True(t, admin.IsProtocol(err))
	assert.Contains(t, err.Error(), "unknown scope")
}

func TestBadCredentials(t *testing.T) {
	f := newFixture(t, Options{})

	conn, err := transport.NewHTTPConn(f.url, transport.Options{User: "admin", Password: "wrong"})
	require.NoError(t, err)
	c := admin.NewClient(conn, nil)

	_, err = c.Read(context.Background(), admin.DestCA, admin.ScopeGeneral, admin.RequestConfig, nvpair.Names("a"))
	require.Error(t, err)
	assert.True(t, admin.IsProtocol(err))
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestRecoveryAgentChange(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	first := nvpair.New(nvpair.Pair{Name: admin.ParamRecoveryAgent, Value: "agent-pw-1"})
	require.NoError(t, f.client.Modify(ctx, admin.DestKRA, admin.ScopeAgentPwd, admin.RequestConfig, first))

	wrongOld := nvpair.New(
		nvpair.Pair{Name: admin.ParamOldRecoveryAgent, Value: "nope"},
		nvpair.Pair{Name: admin.ParamRecoveryAgent, Value: "agent-pw-2"},
	)
	err := f.client.Modify(ctx, admin.DestKRA, admin.ScopeAgentPwd, admin.RequestConfig, wrongOld)
	require.Error(t, err)
	assert.True(t, admin.IsProtocol(err))

	rightOld := nvpair.New(
		nvpair.Pair{Name: admin.ParamOldRecoveryAgent, Value: "agent-pw-1"},
		nvpair.Pair{Name: admin.ParamRecoveryAgent, Value: "agent-pw-2"},
	)
	require.NoError(t, f.client.Modify(ctx, admin.DestKRA, admin.ScopeAgentPwd, admin.RequestConfig, rightOld))

	// Secrets never come back on read.
	got, err := f.client.Read(ctx, admin.DestKRA, admin.ScopeAgentPwd, admin.RequestConfig, nvpair.Names(admin.ParamRecoveryAgent))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	stored, err := f.store.ReadSettings(string(admin.DestKRA), string(admin.ScopeAgentPwd), string(admin.RequestConfig))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored[0].Value), []byte("agent-pw-2")))
}

func TestRawProtocolErrors(t *testing.T) {
	f := newFixture(t, Options{})

	post := func(query, body string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, f.url+"/caadmin?"+query, strings.NewReader(body))
		require.NoError(t, err)
		req.SetBasicAuth("admin", "secret")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post("OP_TYPE=OP_DELETE&OP_SCOPE=general&RS_ID=RS_ID_CONFIG", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post("OP_TYPE=OP_READ&OP_SCOPE=general", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post("OP_TYPE=OP_READ&OP_SCOPE=general&RS_ID=RS_ID_CONFIG", "broken")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndCORS(t *testing.T) {
	f := newFixture(t, Options{AllowedOrigins: []string{"https://console.example.com"}})

	resp, err := http.Get(f.url + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	req, err := http.NewRequest(http.MethodOptions, f.url+"/caadmin", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	pre, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer pre.Body.Close()
	assert.Equal(t, "https://console.example.com", pre.Header.Get("Access-Control-Allow-Origin"))
}

func TestSeedIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})

	n, err := f.srv.Seed()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
