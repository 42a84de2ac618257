package server

import (
	"slices"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/config"
	"github.com/dukerupert/certadmin/internal/nvpair"
)

// ScopeSchema describes the parameters a scope recognizes.
type ScopeSchema struct {
	// Names lists recognized parameters. Nil means any name is accepted,
	// which is how plugin rule instances carry their own parameters.
	Names []string
	// Defaults are seeded under admin.RequestConfig on first start.
	Defaults *nvpair.Set
	// Secret scopes store bcrypt hashes and never return values on read.
	Secret bool
}

func (s ScopeSchema) Recognizes(name string) bool {
	return s.Names == nil || slices.Contains(s.Names, name)
}

// Schema maps destinations to their scopes.
type Schema map[admin.Destination]map[admin.Scope]ScopeSchema

// Lookup returns the scope schema; destOK is false for unknown destinations.
func (s Schema) Lookup(dest admin.Destination, scope admin.Scope) (sch ScopeSchema, destOK, scopeOK bool) {
	scopes, ok := s[dest]
	if !ok {
		return ScopeSchema{}, false, false
	}
	sch, ok = scopes[scope]
	return sch, true, ok
}

// Defaults flattens every scope's defaults into store settings.
func (s Schema) Defaults() []config.Setting {
	var out []config.Setting
	for dest, scopes := range s {
		for scope, sch := range scopes {
			for name, value := range sch.Defaults.All() {
				out = append(out, config.Setting{
					Destination: string(dest),
					Scope:       string(scope),
					Resource:    string(admin.RequestConfig),
					Name:        name,
					Value:       value,
				})
			}
		}
	}
	return out
}

func pairs(kv ...string) *nvpair.Set {
	s := nvpair.New()
	for i := 0; i+1 < len(kv); i += 2 {
		s.Add(kv[i], kv[i+1])
	}
	return s
}

func logScope(enabled, level string) ScopeSchema {
	return ScopeSchema{
		Names: []string{
			admin.ParamLogEnabled,
			admin.ParamLogLevel,
			admin.ParamLogBufferSize,
			admin.ParamLogMaxFileSize,
			admin.ParamLogRolloverInterval,
		},
		Defaults: pairs(
			admin.ParamLogEnabled, enabled,
			admin.ParamLogLevel, level,
			admin.ParamLogBufferSize, "512",
			admin.ParamLogMaxFileSize, "2000",
			admin.ParamLogRolloverInterval, "2592000",
		),
	}
}

func certScope(mapper, publisher string) ScopeSchema {
	return ScopeSchema{
		Names:    []string{admin.ParamMapperImplName, admin.ParamPublisherImplName},
		Defaults: pairs(admin.ParamMapperImplName, mapper, admin.ParamPublisherImplName, publisher),
	}
}

func generalScope() ScopeSchema {
	return ScopeSchema{
		Names:    []string{admin.ParamEnableSerialManagement, admin.ParamCipherSuites},
		Defaults: pairs(admin.ParamEnableSerialManagement, "false", admin.ParamCipherSuites, "TLS_AES_128_GCM_SHA256,TLS_AES_256_GCM_SHA384"),
	}
}

var anyNames = ScopeSchema{}

// DefaultSchema is the scope layout of a certificate server with CA, RA and
// KRA subsystems.
func DefaultSchema() Schema {
	return Schema{
		admin.DestCA: {
			admin.ScopeCACertConfig:   certScope("LdapCaSimpleMap", "LdapCaCertPublisher"),
			admin.ScopeUserCertConfig: certScope("LdapUserCertMap", "LdapUserCertPublisher"),
			admin.ScopeGeneral:        generalScope(),
			admin.ScopePolicyRules:    anyNames,
			admin.ScopeMapperRules:    anyNames,
			admin.ScopePublisherRules: anyNames,
		},
		admin.DestRA: {
			admin.ScopeUserCertConfig: certScope("LdapUserCertMap", "LdapUserCertPublisher"),
			admin.ScopeGeneral:        generalScope(),
			admin.ScopePolicyRules:    anyNames,
			admin.ScopeMapperRules:    anyNames,
			admin.ScopePublisherRules: anyNames,
		},
		admin.DestKRA: {
			admin.ScopeMNScheme: {
				Names: []string{admin.ParamRequiredAgents, admin.ParamRecoveryM, admin.ParamRecoveryN},
				Defaults: pairs(
					admin.ParamRequiredAgents, "1",
					admin.ParamRecoveryM, "1",
					admin.ParamRecoveryN, "1",
				),
			},
			admin.ScopeAgentPwd: {
				Names:  []string{admin.ParamRecoveryAgent, admin.ParamOldRecoveryAgent},
				Secret: true,
			},
			admin.ScopeGeneral: generalScope(),
		},
		admin.DestLog: {
			admin.ScopeTransactionsLog: logScope("true", "1"),
			admin.ScopeSystemLog:       logScope("true", "1"),
			admin.ScopeErrorLog:        logScope("true", "1"),
		},
		admin.DestOCSP: {
			admin.ScopeOCSPStoreRules: anyNames,
			admin.ScopeGeneral:        generalScope(),
		},
		admin.DestJobs: {
			admin.ScopeGeneral: {
				Names:    []string{admin.ParamLogEnabled, "interval"},
				Defaults: pairs(admin.ParamLogEnabled, "false", "interval", "1"),
			},
		},
		admin.DestRegistry: {
			admin.ScopeGeneral: anyNames,
		},
	}
}
