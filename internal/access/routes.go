package access

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
)

// RouteTable is the configuration-driven route set shared by every guard.
//
// Prefix lists are matched on path-segment boundaries: "/invoice" matches
// "/invoice" and "/invoice/42" but never "/invoices".
type RouteTable struct {
	Login               string `yaml:"login" json:"login" validate:"required,startswith=/"`
	Dashboard           string `yaml:"dashboard" json:"dashboard" validate:"required,startswith=/"`
	VerificationHolding string `yaml:"verification_holding" json:"verification_holding" validate:"required,startswith=/"`
	Verification        string `yaml:"verification" json:"verification" validate:"required,startswith=/"`
	LegacyVerification  string `yaml:"legacy_verification" json:"legacy_verification" validate:"omitempty,startswith=/"`

	PasswordRoutes []string `yaml:"password_routes" json:"password_routes" validate:"dive,startswith=/"`
	Public         []string `yaml:"public" json:"public" validate:"dive,startswith=/"`
	AuthOnly       []string `yaml:"auth_only" json:"auth_only" validate:"dive,startswith=/"`
	Assets         []string `yaml:"assets" json:"assets" validate:"dive,startswith=/"`
	AssetPatterns  []string `yaml:"asset_patterns" json:"asset_patterns" validate:"dive,startswith=/"`
	Passthrough    []string `yaml:"passthrough" json:"passthrough" validate:"dive,startswith=/"`
	Admin          []string `yaml:"admin" json:"admin" validate:"dive,startswith=/"`
}

// DefaultRouteTable returns the route set used by both frontends.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		Login:               "/login",
		Dashboard:           "/dashboard",
		VerificationHolding: "/email-verification",
		Verification:        "/verify-email",
		LegacyVerification:  "/dashboard/verify-email",

		PasswordRoutes: []string{"/forgot-password", "/reset-password"},
		Public: []string{
			"/login",
			"/register",
			"/forgot-password",
			"/reset-password",
			"/verify-email",
			"/email-verification",
			"/invoice",
			"/payment",
		},
		AuthOnly: []string{"/login", "/register", "/forgot-password", "/reset-password"},
		Assets: []string{
			"/_next",
			"/static",
			"/assets",
			"/favicon.ico",
			"/robots.txt",
			"/sitemap.xml",
		},
		AssetPatterns: []string{"/**/*.{png,jpg,jpeg,gif,svg,ico,webp,css,js,map,woff,woff2}"},
		Passthrough:   []string{"/api/public"},
		Admin:         []string{"/admin"},
	}
}

// Validate reports every malformed route and glob pattern.
func (t RouteTable) Validate() error {
	if err := validator.New().Struct(t); err != nil {
		return fmt.Errorf("access: invalid route table: %w", err)
	}
	for _, p := range t.AssetPatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("access: invalid asset pattern %q", p)
		}
	}
	return nil
}

// IsVerificationRoute reports whether path is the holding page, the bare
// verification page or a token-bearing verification page.
func (t RouteTable) IsVerificationRoute(path string) bool {
	return path == t.VerificationHolding || matchPrefix(path, t.Verification)
}

func (t RouteTable) IsPublic(path string) bool { return matchAny(path, t.Public) }

func (t RouteTable) IsAuthOnly(path string) bool { return matchAny(path, t.AuthOnly) }

func (t RouteTable) IsPasswordRoute(path string) bool { return matchAny(path, t.PasswordRoutes) }

func (t RouteTable) IsAdmin(path string) bool { return matchAny(path, t.Admin) }

// IsAsset reports static assets and public API passthroughs. Neither is a
// page navigation, so neither is subject to redirects.
func (t RouteTable) IsAsset(path string) bool {
	if matchAny(path, t.Assets) || matchAny(path, t.Passthrough) {
		return true
	}
	for _, p := range t.AssetPatterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}

func matchAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if matchPrefix(path, p) {
			return true
		}
	}
	return false
}

func matchPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if prefix == "/" {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
