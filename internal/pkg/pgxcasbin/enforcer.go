package pgxcasbin

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

// RBACModel grants a role an action on an object. Roles may inherit through g.
const RBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && r.obj == p.obj && r.act == p.act
`

// NewEnforcer loads the stored policies and adds every seed not yet present.
// A seed is "role,object,action".
func NewEnforcer(adapter *Adapter, seeds []string) (*casbin.Enforcer, error) {
	rules := make([][]string, 0, len(seeds))
	for _, seed := range seeds {
		parts := strings.Split(seed, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("pgxcasbin: invalid policy seed %q", seed)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		rules = append(rules, parts)
	}

	m, err := model.NewModelFromString(RBACModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if _, err := e.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return nil, err
		}
	}

	return e, nil
}
