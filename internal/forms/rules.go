package forms

import (
	"fmt"
	"slices"

	"github.com/dukerupert/certadmin/internal/admin"
)

// ruleScopes are the scopes that hold plugin rule instances.
var ruleScopes = []admin.Scope{admin.ScopePolicyRules, admin.ScopeMapperRules, admin.ScopePublisherRules}

// RuleInstance edits one configured policy, mapper or publisher instance.
// The instance name is the request id; its parameters are whatever the
// plugin implementation defines.
type RuleInstance struct {
	*scopeForm
	instance string
}

// NewRuleInstance builds a form for instance with the given plugin
// parameters. The implementation name is always the first field and is
// required, since an instance the server does not know yet is created by it.
func NewRuleInstance(client *admin.Client, dest admin.Destination, scope admin.Scope, instance string, params ...string) (*RuleInstance, error) {
	if !slices.Contains(ruleScopes, scope) {
		return nil, fmt.Errorf("%s is not a rule scope", scope)
	}
	if err := RequireNonBlank("instance name", instance); err != nil {
		return nil, err
	}

	fs := newFields(admin.ParamImplName)
	for _, p := range params {
		fs.add(p)
	}

	return &RuleInstance{
		scopeForm: &scopeForm{
			name:   fmt.Sprintf("%s/%s/%s", dest, scope, instance),
			client: client,
			dest:   dest,
			scope:  scope,
			rid:    admin.RequestID(instance),
			fields: fs,
			checks: []check{required(admin.ParamImplName)},
		},
		instance: instance,
	}, nil
}

func (r *RuleInstance) Instance() string { return r.instance }

func (r *RuleInstance) Implementation() string { return r.Get(admin.ParamImplName) }
