package forms

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/nvpair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type scopeKey struct {
	dest  admin.Destination
	scope admin.Scope
	rid   admin.RequestID
}

// memConn is an in-memory server. Setting fail makes every call fail with
// that error without touching the data.
type memConn struct {
	data     map[scopeKey]map[string]string
	fail     error
	reads    int
	modifies int
	sent     *nvpair.Set
}

func newMemConn() *memConn {
	return &memConn{data: make(map[scopeKey]map[string]string)}
}

func (m *memConn) put(dest admin.Destination, scope admin.Scope, rid admin.RequestID, kv ...string) {
	k := scopeKey{dest, scope, rid}
	if m.data[k] == nil {
		m.data[k] = make(map[string]string)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		m.data[k][kv[i]] = kv[i+1]
	}
}

func (m *memConn) Read(_ context.Context, dest admin.Destination, scope admin.Scope, rid admin.RequestID, names *nvpair.Set) (*nvpair.Set, error) {
	m.reads++
	if m.fail != nil {
		return nil, m.fail
	}
	out := nvpair.New()
	for n := range names.All() {
		if v, ok := m.data[scopeKey{dest, scope, rid}][n]; ok {
			out.Add(n, v)
		}
	}
	return out, nil
}

func (m *memConn) Modify(_ context.Context, dest admin.Destination, scope admin.Scope, rid admin.RequestID, updates *nvpair.Set) error {
	m.modifies++
	if m.fail != nil {
		return m.fail
	}
	m.sent = updates.Clone()
	for n, v := range updates.All() {
		m.put(dest, scope, rid, n, v)
	}
	return nil
}

func (m *memConn) value(dest admin.Destination, scope admin.Scope, rid admin.RequestID, name string) string {
	return m.data[scopeKey{dest, scope, rid}][name]
}

func newClient(t *testing.T, conn admin.Conn) *admin.Client {
	t.Helper()
	return admin.NewClient(conn, zaptest.NewLogger(t))
}

func seedLog(m *memConn, enabled string) {
	m.put(admin.DestLog, admin.ScopeErrorLog, admin.RequestConfig,
		admin.ParamLogEnabled, enabled,
		admin.ParamLogLevel, "1",
		admin.ParamLogBufferSize, "512",
		admin.ParamLogMaxFileSize, "2000",
		admin.ParamLogRolloverInterval, "86400",
	)
}

func TestLogSettingsRefreshAndSave(t *testing.T) {
	conn := newMemConn()
	seedLog(conn, "true")
	ctx := context.Background()

	form := NewLogSettings(newClient(t, conn), admin.ScopeErrorLog)
	require.NoError(t, form.Refresh(ctx))
	assert.True(t, form.Enabled())
	assert.Equal(t, "512", form.BufferSize())
	assert.False(t, form.Dirty())

	require.NoError(t, form.Set(admin.ParamLogLevel, "4"))
	form.SetRolloverInterval("weekly")
	assert.True(t, form.Dirty())
	assert.Equal(t, "604800", form.RolloverInterval())

	require.NoError(t, form.Save(ctx))
	assert.False(t, form.Dirty())
	assert.Equal(t, "4", conn.value(admin.DestLog, admin.ScopeErrorLog, admin.RequestConfig, admin.ParamLogLevel))
	assert.Equal(t, "604800", conn.value(admin.DestLog, admin.ScopeErrorLog, admin.RequestConfig, admin.ParamLogRolloverInterval))
}

func TestLogEnabledTokenIsPreservedVerbatim(t *testing.T) {
	conn := newMemConn()
	seedLog(conn, "TRUE")
	ctx := context.Background()

	form := NewLogSettings(newClient(t, conn), admin.ScopeErrorLog)
	require.NoError(t, form.Refresh(ctx))
	assert.True(t, form.Enabled(), "comparison is case-insensitive")

	form.SetEnabled(true)
	require.NoError(t, form.Set(admin.ParamLogLevel, "2"))
	require.NoError(t, form.Save(ctx))

	assert.Equal(t, "TRUE", conn.value(admin.DestLog, admin.ScopeErrorLog, admin.RequestConfig, admin.ParamLogEnabled))

	form.SetEnabled(false)
	require.NoError(t, form.Save(ctx))
	assert.Equal(t, "false", conn.value(admin.DestLog, admin.ScopeErrorLog, admin.RequestConfig, admin.ParamLogEnabled))
}

func TestLogSettingsValidation(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"non-numeric buffer size", admin.ParamLogBufferSize, "abc"},
		{"zero buffer size", admin.ParamLogBufferSize, "0"},
		{"negative max file size", admin.ParamLogMaxFileSize, "-5"},
		{"blank level", admin.ParamLogLevel, ""},
		{"zero rollover", admin.ParamLogRolloverInterval, "0"},
		{"enabled not a boolean", admin.ParamLogEnabled, "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newMemConn()
			seedLog(conn, "true")
			form := NewLogSettings(newClient(t, conn), admin.ScopeErrorLog)
			require.NoError(t, form.Refresh(context.Background()))

			require.NoError(t, form.Set(tt.field, tt.value))
			err := form.Save(context.Background())

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, 0, conn.modifies, "no request may be sent")
			assert.True(t, form.Dirty())
			assert.Equal(t, tt.value, form.Get(tt.field))
		})
	}
}

func TestPartialScopeSavesOnlyProvidedAndEditedFields(t *testing.T) {
	conn := newMemConn()
	conn.put(admin.DestLog, admin.ScopeSystemLog, admin.RequestConfig,
		admin.ParamLogEnabled, "true",
		admin.ParamLogLevel, "1",
		admin.ParamLogBufferSize, "512",
		admin.ParamLogMaxFileSize, "2000",
	)
	ctx := context.Background()

	form := NewLogSettings(newClient(t, conn), admin.ScopeSystemLog)
	require.NoError(t, form.Refresh(ctx))
	assert.Equal(t, []string{admin.ParamLogRolloverInterval}, form.Unsupported())
	assert.False(t, form.Provided(admin.ParamLogRolloverInterval))

	require.NoError(t, form.Set(admin.ParamLogLevel, "3"))
	require.NoError(t, form.Save(ctx))
	require.Equal(t, 1, conn.modifies)
	assert.Equal(t, []string{
		admin.ParamLogEnabled,
		admin.ParamLogLevel,
		admin.ParamLogBufferSize,
		admin.ParamLogMaxFileSize,
	}, conn.sent.NameList())
	assert.Equal(t, "3", conn.value(admin.DestLog, admin.ScopeSystemLog, admin.RequestConfig, admin.ParamLogLevel))

	// Editing the unsupported field brings it into validation and the request.
	form.SetRolloverInterval("")
	var ve *ValidationError
	require.True(t, errors.As(form.Save(ctx), &ve))
	assert.Equal(t, admin.ParamLogRolloverInterval, ve.Field)

	form.SetRolloverInterval("daily")
	require.NoError(t, form.Save(ctx))
	assert.True(t, conn.sent.Has(admin.ParamLogRolloverInterval))
}

func TestRecoverySchemeWithoutMOfNFields(t *testing.T) {
	conn := newMemConn()
	conn.put(admin.DestKRA, admin.ScopeMNScheme, admin.RequestConfig, admin.ParamRequiredAgents, "1")
	ctx := context.Background()

	form := NewRecoveryScheme(newClient(t, conn))
	require.NoError(t, form.Refresh(ctx))
	require.NoError(t, form.Set(admin.ParamRequiredAgents, "2"))
	require.NoError(t, form.Save(ctx))
	assert.Equal(t, []string{admin.ParamRequiredAgents}, conn.sent.NameList())

	// M alone is checked, the M-of-N comparison waits for N.
	require.NoError(t, form.Set(admin.ParamRecoveryM, "3"))
	require.NoError(t, form.Save(ctx))
	assert.Equal(t, []string{admin.ParamRequiredAgents, admin.ParamRecoveryM}, conn.sent.NameList())
}

func TestCertPublisherWithoutMapperSupport(t *testing.T) {
	conn := newMemConn()
	conn.put(admin.DestRA, admin.ScopeUserCertConfig, admin.RequestConfig,
		admin.ParamPublisherImplName, "LdapUserCertPublisher")
	ctx := context.Background()

	form := NewCertSettings(newClient(t, conn), PanelRAUserCert, nil)
	require.NoError(t, form.Refresh(ctx))
	require.NoError(t, form.Set(admin.ParamPublisherImplName, "OtherPublisher"))
	require.NoError(t, form.Save(ctx))
	assert.Equal(t, []string{admin.ParamPublisherImplName}, conn.sent.NameList())
}

func TestRecoverySchemeRejectsZeroAgents(t *testing.T) {
	conn := newMemConn()
	conn.put(admin.DestKRA, admin.ScopeMNScheme, admin.RequestConfig,
		admin.ParamRequiredAgents, "1", admin.ParamRecoveryM, "1", admin.ParamRecoveryN, "1")
	form := NewRecoveryScheme(newClient(t, conn))
	require.NoError(t, form.Refresh(context.Background()))

	require.NoError(t, form.Set(admin.ParamRequiredAgents, "0"))
	err := form.Save(context.Background())

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, admin.ParamRequiredAgents, ve.Field)
	assert.Contains(t, ve.Error(), "at least 1")
	assert.Equal(t, 0, conn.modifies)
}

func TestRecoverySchemeMOfN(t *testing.T) {
	conn := newMemConn()
	form := NewRecoveryScheme(newClient(t, conn))
	require.NoError(t, form.Refresh(context.Background()))
	assert.ElementsMatch(t, form.Fields(), form.Unsupported(), "nothing provided by an empty server")

	require.NoError(t, form.Set(admin.ParamRequiredAgents, "2"))
	require.NoError(t, form.Set(admin.ParamRecoveryM, "3"))
	require.NoError(t, form.Set(admin.ParamRecoveryN, "2"))

	err := form.Validate()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, admin.ParamRecoveryN, ve.Field)

	require.NoError(t, form.Set(admin.ParamRecoveryN, "5"))
	require.NoError(t, form.Save(context.Background()))
	assert.Equal(t, "5", conn.value(admin.DestKRA, admin.ScopeMNScheme, admin.RequestConfig, admin.ParamRecoveryN))
	assert.Empty(t, form.Unsupported())
}

func TestChangeAgentCredential(t *testing.T) {
	conn := newMemConn()
	form := NewRecoveryScheme(newClient(t, conn))

	err := form.ChangeAgentCredential(context.Background(), "old", "")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 0, conn.modifies)

	require.NoError(t, form.ChangeAgentCredential(context.Background(), "old", "new"))
	assert.Equal(t, "old", conn.value(admin.DestKRA, admin.ScopeAgentPwd, admin.RequestConfig, admin.ParamOldRecoveryAgent))
	assert.Equal(t, "new", conn.value(admin.DestKRA, admin.ScopeAgentPwd, admin.RequestConfig, admin.ParamRecoveryAgent))
	assert.False(t, form.Dirty())
}

func TestTransportFailureLeavesEditsUntouched(t *testing.T) {
	conn := newMemConn()
	seedLog(conn, "true")
	ctx := context.Background()

	form := NewLogSettings(newClient(t, conn), admin.ScopeErrorLog)
	require.NoError(t, form.Refresh(ctx))
	require.NoError(t, form.Set(admin.ParamLogBufferSize, "1024"))

	conn.fail = admin.TransportError("connection reset by peer", nil)
	err := form.Save(ctx)
	require.Error(t, err)
	assert.True(t, admin.IsTransport(err))

	assert.Equal(t, "1024", form.BufferSize(), "edited value kept")
	assert.True(t, form.Dirty(), "still unsaved")
	assert.Equal(t, "512", conn.value(admin.DestLog, admin.ScopeErrorLog, admin.RequestConfig, admin.ParamLogBufferSize))

	// A failed refresh must not reset the form either.
	err = form.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, "1024", form.BufferSize())

	// Retry once the connection is back.
	conn.fail = nil
	require.NoError(t, form.Save(ctx))
	assert.False(t, form.Dirty())
}

func TestRuleInstance(t *testing.T) {
	conn := newMemConn()
	ctx := context.Background()
	client := newClient(t, conn)

	_, err := NewRuleInstance(client, admin.DestCA, admin.ScopeGeneral, "x")
	assert.Error(t, err)
	_, err = NewRuleInstance(client, admin.DestCA, admin.ScopeMapperRules, " ")
	assert.Error(t, err)

	form, err := NewRuleInstance(client, admin.DestCA, admin.ScopeMapperRules, "LdapCaCertMap", "dnPattern")
	require.NoError(t, err)
	require.NoError(t, form.Refresh(ctx))
	assert.Equal(t, []string{admin.ParamImplName, "dnPattern"}, form.Fields())

	err = form.Save(ctx)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, admin.ParamImplName, ve.Field)

	require.NoError(t, form.Set(admin.ParamImplName, "LdapCaSimpleMap"))
	require.NoError(t, form.Set("dnPattern", "cn=$subj.cn"))
	require.NoError(t, form.Save(ctx))
	assert.Equal(t, "LdapCaSimpleMap", conn.value(admin.DestCA, admin.ScopeMapperRules, "LdapCaCertMap", admin.ParamImplName))

	assert.Error(t, form.Set("nope", "x"))
}

func TestRoutePanel(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	tests := []struct {
		panel   string
		dest    admin.Destination
		scope   admin.Scope
		matched bool
	}{
		{PanelCACACert, admin.DestCA, admin.ScopeCACertConfig, true},
		{PanelCAUserCert, admin.DestCA, admin.ScopeUserCertConfig, true},
		{PanelRAUserCert, admin.DestRA, admin.ScopeUserCertConfig, true},
		{"KRA user-cert", admin.DestRA, admin.ScopeUserCertConfig, false},
	}
	for _, tt := range tests {
		dest, scope, matched := RoutePanel(tt.panel, logger)
		assert.Equal(t, tt.dest, dest, tt.panel)
		assert.Equal(t, tt.scope, scope, tt.panel)
		assert.Equal(t, tt.matched, matched, tt.panel)
	}
	assert.Equal(t, 1, logs.Len(), "the fallback is logged")
}

func TestCertSettings(t *testing.T) {
	conn := newMemConn()
	conn.put(admin.DestCA, admin.ScopeUserCertConfig, admin.RequestConfig,
		admin.ParamMapperImplName, "LdapUserCertMap", admin.ParamPublisherImplName, "LdapUserCertPublisher")
	ctx := context.Background()

	form := NewCertSettings(newClient(t, conn), PanelCAUserCert, nil)
	assert.Equal(t, admin.DestCA, form.Destination())
	require.NoError(t, form.Refresh(ctx))
	assert.Equal(t, "LdapUserCertMap", form.Mapper())
	assert.Equal(t, "LdapUserCertPublisher", form.Publisher())

	require.NoError(t, form.Set(admin.ParamMapperImplName, ""))
	err := form.Save(ctx)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))

	require.NoError(t, form.Set(admin.ParamPublisherImplName, ""))
	require.NoError(t, form.Save(ctx))
	assert.Equal(t, "", conn.value(admin.DestCA, admin.ScopeUserCertConfig, admin.RequestConfig, admin.ParamPublisherImplName))
}

func TestControllerDispatch(t *testing.T) {
	conn := newMemConn()
	seedLog(conn, "true")
	ctx := context.Background()

	form := NewLogSettings(newClient(t, conn), admin.ScopeErrorLog)
	c := NewController(form, zaptest.NewLogger(t))

	require.NoError(t, c.Dispatch(ctx, ActionRefresh))
	assert.Equal(t, 1, conn.reads)

	// Saving an unchanged form sends nothing.
	require.NoError(t, c.Dispatch(ctx, ActionSave))
	assert.Equal(t, 0, conn.modifies)

	require.NoError(t, form.Set(admin.ParamLogLevel, "9"))
	assert.ErrorIs(t, c.Dispatch(ctx, ActionRefresh), ErrUnsavedChanges)

	require.NoError(t, c.Dispatch(ctx, ActionRevert))
	assert.Equal(t, "1", form.Level())
	assert.False(t, form.Dirty())

	require.NoError(t, form.Set(admin.ParamLogLevel, "9"))
	require.NoError(t, c.Dispatch(ctx, ActionSave))
	assert.Equal(t, 1, conn.modifies)

	assert.Error(t, c.Dispatch(ctx, Action(99)))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("Save")
	require.NoError(t, err)
	assert.Equal(t, ActionSave, a)
	assert.Equal(t, "save", a.String())

	_, err = ParseAction("explode")
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	n, err := ParseMinInt("x", " 7 ", 1)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = ParsePositiveInt("x", "0")
	assert.Error(t, err)

	b, err := ParseBool("x", "FaLsE")
	require.NoError(t, err)
	assert.False(t, b)

	assert.Error(t, RequireNonBlank("x", "  "))
	assert.Equal(t, "x must be a whole number (got \"abc\")", (&ValidationError{Field: "x", Value: "abc", Reason: "must be a whole number"}).Error())
}
