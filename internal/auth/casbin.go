package auth

import (
	"log"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// InitCasbin defines the RBAC model and initializes the enforcer with
// the GORM adapter.
func InitCasbin(db *gorm.DB) (*casbin.Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}

	text := `
		[request_definition]
		r = sub, obj, act

		[policy_definition]
		p = sub, obj, act

		[role_definition]
		g = _, _

		[policy_effect]
		e = some(where (p.eft == allow))

		[matchers]
		m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
	`
	// keyMatch2 supports URL parameters like /contracts/:id/settle

	m, err := model.NewModelFromString(text)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	policies, _ := enforcer.GetPolicy()
	if len(policies) == 0 {
		log.Println("Casbin: No policies found, initializing default policies...")
		seedDefaultPolicies(enforcer)
	}

	log.Println("Casbin initialized successfully")
	return enforcer, nil
}

// seedDefaultPolicies grants admin everything under /api. Plain users
// get all reads plus the trading and ledger actions; parameter updates
// and token minting stay admin-only.
func seedDefaultPolicies(enforcer *casbin.Enforcer) {
	policies := [][]string{
		{"admin", "/api/*", "(GET)|(POST)|(PUT)|(DELETE)"},

		{"user", "/api/*", "GET"},
		{"user", "/api/auth/logout", "POST"},

		{"user", "/api/futures/orders", "POST"},
		{"user", "/api/futures/orders/:id/cancel", "POST"},
		{"user", "/api/futures/orders/sweep", "POST"},
		{"user", "/api/futures/contracts/:id/settle", "POST"},
		{"user", "/api/futures/contracts/:id/liquidate", "POST"},

		{"user", "/api/ledger/deposit", "POST"},
		{"user", "/api/ledger/withdraw", "POST"},
		{"user", "/api/ledger/approve", "POST"},
	}

	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			log.Printf("Failed to add policy %v: %v", p, err)
		}
	}
	if err := enforcer.SavePolicy(); err != nil {
		log.Printf("Failed to save default policies: %v", err)
	} else {
		log.Println("Casbin: Default policies initialized.")
	}
}
