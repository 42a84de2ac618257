package forms

import (
	"strings"

	"github.com/dukerupert/certadmin/internal/admin"
	"go.uber.org/zap"
)

// Panel names of the certificate mapping and publishing settings.
const (
	PanelCACACert   = "CA CA-cert"
	PanelCAUserCert = "CA user-cert"
	PanelRAUserCert = "RA user-cert"
)

type panelRoute struct {
	dest  admin.Destination
	scope admin.Scope
}

var panelRoutes = map[string]panelRoute{
	PanelCACACert:   {admin.DestCA, admin.ScopeCACertConfig},
	PanelCAUserCert: {admin.DestCA, admin.ScopeUserCertConfig},
	PanelRAUserCert: {admin.DestRA, admin.ScopeUserCertConfig},
}

// RoutePanel maps a panel name to the destination and scope it edits.
// Unmatched names fall back to the RA user-cert scope and report matched as
// false.
func RoutePanel(panel string, logger *zap.Logger) (dest admin.Destination, scope admin.Scope, matched bool) {
	if r, ok := panelRoutes[panel]; ok {
		return r.dest, r.scope, true
	}
	if logger != nil {
		logger.Warn("unknown panel, falling back to RA user-cert settings", zap.String("panel", panel))
	}
	return admin.DestRA, admin.ScopeUserCertConfig, false
}

// CertSettings edits the mapper and publisher used for a class of
// certificates on one subsystem.
type CertSettings struct {
	*scopeForm
	panel string
}

func NewCertSettings(client *admin.Client, panel string, logger *zap.Logger) *CertSettings {
	dest, scope, _ := RoutePanel(panel, logger)
	return &CertSettings{
		scopeForm: &scopeForm{
			name:   strings.ToLower(strings.ReplaceAll(panel, " ", "-")),
			client: client,
			dest:   dest,
			scope:  scope,
			rid:    admin.RequestConfig,
			fields: newFields(admin.ParamMapperImplName, admin.ParamPublisherImplName),
			checks: []check{publisherNeedsMapper},
		},
		panel: panel,
	}
}

// publisherNeedsMapper rejects a publisher without a mapper: publishing
// locates the directory entry through the mapper.
func publisherNeedsMapper(f *fields) error {
	if !f.active(admin.ParamMapperImplName) || strings.TrimSpace(f.get(admin.ParamPublisherImplName)) == "" {
		return nil
	}
	if err := RequireNonBlank(admin.ParamMapperImplName, f.get(admin.ParamMapperImplName)); err != nil {
		return &ValidationError{Field: admin.ParamMapperImplName, Reason: "is required when a publisher is set"}
	}
	return nil
}

func (c *CertSettings) Panel() string { return c.panel }

func (c *CertSettings) Mapper() string { return c.Get(admin.ParamMapperImplName) }

func (c *CertSettings) Publisher() string { return c.Get(admin.ParamPublisherImplName) }
