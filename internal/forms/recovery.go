package forms

import (
	"context"
	"fmt"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/nvpair"
)

// RecoveryScheme edits the key recovery authority's M-of-N scheme.
type RecoveryScheme struct {
	*scopeForm
}

func NewRecoveryScheme(client *admin.Client) *RecoveryScheme {
	return &RecoveryScheme{&scopeForm{
		name:   "kra/" + string(admin.ScopeMNScheme),
		client: client,
		dest:   admin.DestKRA,
		scope:  admin.ScopeMNScheme,
		rid:    admin.RequestConfig,
		fields: newFields(admin.ParamRequiredAgents, admin.ParamRecoveryM, admin.ParamRecoveryN),
		checks: []check{
			minInt(admin.ParamRequiredAgents, 1),
			minInt(admin.ParamRecoveryM, 1),
			mOfN,
		},
	}}
}

// mOfN requires N to be at least M. It only applies when both are in play.
func mOfN(f *fields) error {
	if !f.active(admin.ParamRecoveryM) || !f.active(admin.ParamRecoveryN) {
		return nil
	}
	m, err := ParseMinInt(admin.ParamRecoveryM, f.get(admin.ParamRecoveryM), 1)
	if err != nil {
		return err
	}
	raw := f.get(admin.ParamRecoveryN)
	n, err := ParseMinInt(admin.ParamRecoveryN, raw, 1)
	if err != nil {
		return err
	}
	if n < m {
		return &ValidationError{
			Field:  admin.ParamRecoveryN,
			Value:  raw,
			Reason: fmt.Sprintf("must be at least %s (%d)", admin.ParamRecoveryM, m),
		}
	}
	return nil
}

func (r *RecoveryScheme) RequiredAgents() string { return r.Get(admin.ParamRequiredAgents) }

func (r *RecoveryScheme) M() string { return r.Get(admin.ParamRecoveryM) }

func (r *RecoveryScheme) N() string { return r.Get(admin.ParamRecoveryN) }

// ChangeAgentCredential replaces the recovery agent credential. It is a
// separate exchange from the scheme itself and does not touch the form.
func (r *RecoveryScheme) ChangeAgentCredential(ctx context.Context, oldCred, newCred string) error {
	if err := RequireNonBlank(admin.ParamRecoveryAgent, newCred); err != nil {
		return err
	}
	updates := nvpair.New()
	if oldCred != "" {
		updates.Add(admin.ParamOldRecoveryAgent, oldCred)
	}
	updates.Add(admin.ParamRecoveryAgent, newCred)
	return r.client.Modify(ctx, admin.DestKRA, admin.ScopeAgentPwd, admin.RequestConfig, updates)
}
