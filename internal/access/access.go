// Package access decides who may do what with an order.
package access

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub_rule, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = eval(p.sub_rule) && r.obj.Kind == p.obj && r.act == p.act
`

const (
	ActRead   = "read"
	ActUpdate = "update"
	ActList   = "list"
	ActExport = "export"

	KindOrder = "order"
)

const (
	ruleAdmin = "r.sub.Role == 'admin'"
	ruleOwner = "r.sub.ID == r.obj.OwnerID"
)

var defaultPolicies = [][]string{
	{ruleAdmin, KindOrder, ActRead},
	{ruleAdmin, KindOrder, ActUpdate},
	{ruleAdmin, KindOrder, ActList},
	{ruleAdmin, KindOrder, ActExport},
	{ruleOwner, KindOrder, ActRead},
}

// Subject is the authenticated requester.
type Subject struct {
	ID   string
	Role string
}

// Resource is what is being accessed. OwnerID is empty for collections.
type Resource struct {
	Kind    string
	OwnerID string
}

func NewSubject(id uuid.UUID, role string) *Subject {
	return &Subject{ID: id.String(), Role: role}
}

func OrderOf(ownerID uuid.UUID) *Resource {
	return &Resource{Kind: KindOrder, OwnerID: ownerID.String()}
}

func Orders() *Resource {
	return &Resource{Kind: KindOrder}
}

type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

func New() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("access model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("access enforcer: %w", err)
	}
	for _, p := range defaultPolicies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("add policy %v: %w", p, err)
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(sub *Subject, res *Resource, act string) (bool, error) {
	ok, err := p.enforcer.Enforce(sub, res, act)
	if err != nil {
		return false, fmt.Errorf("enforce %s on %s: %w", act, res.Kind, err)
	}
	return ok, nil
}
