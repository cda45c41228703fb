package access

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	anonymous  = Identity{}
	unverified = Identity{Authenticated: true}
	verified   = Identity{Authenticated: true, EmailVerified: true, Role: "USER"}
)

func TestEngine_Decide(t *testing.T) {
	e := NewEngine(DefaultRouteTable())

	tests := []struct {
		name string
		url  string
		id   Identity
		want Decision
	}{
		{
			name: "anonymous protected goes to login with return path",
			url:  "/invoices",
			id:   anonymous,
			want: Decision{Action: ActionRedirect, Location: "/login?redirect=%2Finvoices", Reason: ReasonLoginRequired, State: StateAnonymous},
		},
		{
			name: "return path drops the query",
			url:  "/clients/7?tab=notes",
			id:   anonymous,
			want: Decision{Action: ActionRedirect, Location: "/login?redirect=%2Fclients%2F7", Reason: ReasonLoginRequired, State: StateAnonymous},
		},
		{
			name: "anonymous public invoice view",
			url:  "/invoice/abc",
			id:   anonymous,
			want: Decision{Action: ActionAllow, Reason: ReasonPublic, State: StateAnonymous},
		},
		{
			name: "anonymous login",
			url:  "/login",
			id:   anonymous,
			want: Decision{Action: ActionAllow, Reason: ReasonPublic, State: StateAnonymous},
		},
		{
			name: "unverified settings funneled",
			url:  "/settings",
			id:   unverified,
			want: Decision{Action: ActionRedirect, Location: "/email-verification", Reason: ReasonEmailUnverified, State: StateAuthenticatedUnverified},
		},
		{
			name: "unverified public page funneled",
			url:  "/payment/42",
			id:   unverified,
			want: Decision{Action: ActionRedirect, Location: "/email-verification", Reason: ReasonEmailUnverified, State: StateAuthenticatedUnverified},
		},
		{
			name: "unverified login funneled to verification, not bounced",
			url:  "/login",
			id:   unverified,
			want: Decision{Action: ActionRedirect, Location: "/email-verification", Reason: ReasonEmailUnverified, State: StateAuthenticatedUnverified},
		},
		{
			name: "unverified holding page allowed",
			url:  "/email-verification",
			id:   unverified,
			want: Decision{Action: ActionAllow, Reason: ReasonVerificationRoute, State: StateAuthenticatedUnverified},
		},
		{
			name: "unverified token page allowed",
			url:  "/verify-email/xyz",
			id:   unverified,
			want: Decision{Action: ActionAllow, Reason: ReasonVerificationRoute, State: StateAuthenticatedUnverified},
		},
		{
			name: "unverified with fromVerify marker passes",
			url:  "/dashboard?fromVerify=1",
			id:   unverified,
			want: Decision{Action: ActionAllow, Reason: ReasonAuthenticated, State: StateAuthenticatedUnverified},
		},
		{
			name: "unverified assets are not navigations",
			url:  "/_next/static/chunk.js",
			id:   unverified,
			want: Decision{Action: ActionAllow, Reason: ReasonAsset, State: StateAuthenticatedUnverified},
		},
		{
			name: "verified login redirected to holding page",
			url:  "/login",
			id:   verified,
			want: Decision{Action: ActionRedirect, Location: "/email-verification", Reason: ReasonAuthOnly, State: StateAuthenticatedVerified},
		},
		{
			name: "verified dashboard",
			url:  "/dashboard",
			id:   verified,
			want: Decision{Action: ActionAllow, Reason: ReasonAuthenticated, State: StateAuthenticatedVerified},
		},
		{
			name: "verified public page",
			url:  "/invoice/abc",
			id:   verified,
			want: Decision{Action: ActionAllow, Reason: ReasonPublic, State: StateAuthenticatedVerified},
		},
		{
			name: "stray token on dashboard rewritten before auth",
			url:  "/dashboard?token=abc123",
			id:   anonymous,
			want: Decision{Action: ActionRewrite, Location: "/verify-email/abc123", Reason: ReasonVerificationLink, State: StateAnonymous},
		},
		{
			name: "token is decoded then re-encoded",
			url:  "/settings?token=a%2Fb%20c",
			id:   verified,
			want: Decision{Action: ActionRewrite, Location: "/verify-email/a%2Fb%20c", Reason: ReasonVerificationLink, State: StateAuthenticatedVerified},
		},
		{
			name: "legacy path link rewritten to query form",
			url:  "/dashboard/verify-email/xyz",
			id:   verified,
			want: Decision{Action: ActionRewrite, Location: "/verify-email?token=xyz", Reason: ReasonVerificationLink, State: StateAuthenticatedVerified},
		},
		{
			name: "legacy link without path token falls back to query",
			url:  "/dashboard/verify-email?token=q1",
			id:   anonymous,
			want: Decision{Action: ActionRewrite, Location: "/verify-email?token=q1", Reason: ReasonVerificationLink, State: StateAnonymous},
		},
		{
			name: "legacy link without any token lands on the bare page",
			url:  "/dashboard/verify-email",
			id:   anonymous,
			want: Decision{Action: ActionRewrite, Location: "/verify-email", Reason: ReasonVerificationLink, State: StateAnonymous},
		},
		{
			name: "holding page with token rewritten",
			url:  "/email-verification?token=t1",
			id:   unverified,
			want: Decision{Action: ActionRewrite, Location: "/verify-email/t1", Reason: ReasonVerificationLink, State: StateAuthenticatedUnverified},
		},
		{
			name: "password reset keeps its token",
			url:  "/reset-password?token=r1",
			id:   anonymous,
			want: Decision{Action: ActionAllow, Reason: ReasonPublic, State: StateAnonymous},
		},
		{
			name: "prefix matching respects segments",
			url:  "/invoices/9",
			id:   anonymous,
			want: Decision{Action: ActionRedirect, Location: "/login?redirect=%2Finvoices%2F9", Reason: ReasonLoginRequired, State: StateAnonymous},
		},
		{
			name: "public api passthrough",
			url:  "/api/public/invoices/1",
			id:   anonymous,
			want: Decision{Action: ActionAllow, Reason: ReasonAsset, State: StateAnonymous},
		},
		{
			name: "asset glob",
			url:  "/images/logo.svg",
			id:   anonymous,
			want: Decision{Action: ActionAllow, Reason: ReasonAsset, State: StateAnonymous},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Decide(NavigationFromURL(tt.url, tt.id))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Decide(%s) mismatch (-want +got):\n%s", tt.url, diff)
			}
		})
	}
}

func TestEngine_ResolveConvergesForEveryState(t *testing.T) {
	e := NewEngine(DefaultRouteTable())
	paths := []string{
		"/", "/dashboard", "/settings", "/invoices", "/invoices/1", "/clients/7",
		"/login", "/login?redirect=%2Finvoices", "/register", "/forgot-password", "/reset-password?token=r",
		"/email-verification", "/verify-email", "/verify-email/abc",
		"/invoice/1", "/payment/2", "/admin", "/admin/users",
		"/dashboard?token=abc123", "/settings?token=x", "/dashboard/verify-email/xyz",
		"/dashboard/verify-email", "/email-verification?token=t", "/verify-email?token=t",
		"/static/app.css", "/api/public/ping", "/dashboard?fromVerify=1",
	}
	ids := []Identity{anonymous, unverified, verified, {Authenticated: true, EmailVerified: true, Role: "ADMIN"}}
	gates := []*RoleGate{nil, {Routes: DefaultRouteTable(), Allowed: []string{"ADMIN"}}}

	for _, p := range paths {
		for _, id := range ids {
			for _, gate := range gates {
				chain, ok := e.Resolve(NavigationFromURL(p, id), gate)
				if !ok {
					t.Fatalf("%s as %s did not settle: %+v", p, id.State(), chain)
				}
				last := chain[len(chain)-1]
				if last.Action != ActionAllow {
					t.Fatalf("%s as %s ended with %+v", p, id.State(), last)
				}
				for _, d := range chain[:len(chain)-1] {
					if d.Location == "" {
						t.Fatalf("%s as %s: non-allow decision without location: %+v", p, id.State(), d)
					}
				}
			}
		}
	}
}

func TestEngine_LegacyLinkTakesTwoHops(t *testing.T) {
	e := NewEngine(DefaultRouteTable())
	chain, ok := e.Resolve(NavigationFromURL("/dashboard/verify-email/xyz", anonymous), nil)
	if !ok || len(chain) != 3 {
		t.Fatalf("unexpected chain: %+v", chain)
	}
	if chain[1].Location != "/verify-email/xyz" {
		t.Fatalf("second hop = %q", chain[1].Location)
	}
}

func TestEngine_AnonymousProtectedRedirectsCarryEscapedPath(t *testing.T) {
	e := NewEngine(DefaultRouteTable())
	for _, p := range []string{"/invoices", "/a b", "/clients/ü", "/x/y/z"} {
		d := e.Decide(Navigation{Path: p, Query: url.Values{}, Identity: anonymous})
		want := "/login?redirect=" + url.QueryEscape(p)
		if d.Location != want {
			t.Fatalf("Decide(%q).Location = %q, want %q", p, d.Location, want)
		}
	}
}

func TestRoleGate(t *testing.T) {
	routes := DefaultRouteTable()
	e := NewEngine(routes)
	gate := &RoleGate{Routes: routes, Allowed: []string{"ADMIN", "SUPER_ADMIN"}}

	tests := []struct {
		name string
		path string
		id   Identity
		want Decision
	}{
		{"user denied", "/admin/users", verified, Decision{Action: ActionRedirect, Location: "/dashboard", Reason: ReasonAdminRequired, State: StateAuthenticatedVerified}},
		{"admin allowed", "/admin", Identity{Authenticated: true, EmailVerified: true, Role: "ADMIN"}, Decision{Action: ActionAllow, Reason: ReasonAuthenticated, State: StateAuthenticatedVerified}},
		{"super admin case-insensitive", "/admin", Identity{Authenticated: true, EmailVerified: true, Role: "super_admin"}, Decision{Action: ActionAllow, Reason: ReasonAuthenticated, State: StateAuthenticatedVerified}},
		{"non-admin path untouched", "/dashboard", verified, Decision{Action: ActionAllow, Reason: ReasonAuthenticated, State: StateAuthenticatedVerified}},
		{"anonymous still goes to login first", "/admin", anonymous, Decision{Action: ActionRedirect, Location: "/login?redirect=%2Fadmin", Reason: ReasonLoginRequired, State: StateAnonymous}},
		{"adminland is not admin", "/adminland", verified, Decision{Action: ActionAllow, Reason: ReasonAuthenticated, State: StateAuthenticatedVerified}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(Navigation{Path: tt.path, Query: url.Values{}, Identity: tt.id}, gate)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEngine_ResolveAppliesRoleGateAtEveryHop(t *testing.T) {
	routes := DefaultRouteTable()
	e := NewEngine(routes)
	gate := &RoleGate{Routes: routes, Allowed: []string{"ADMIN"}}

	chain, ok := e.Resolve(NavigationFromURL("/admin/users", verified), gate)
	if !ok || len(chain) != 2 {
		t.Fatalf("unexpected chain: %+v", chain)
	}
	if chain[0].Reason != ReasonAdminRequired || chain[0].Location != "/dashboard" {
		t.Fatalf("first hop = %+v", chain[0])
	}

	chain, _ = e.Resolve(NavigationFromURL("/admin/users", verified), nil)
	if len(chain) != 1 || chain[0].Action != ActionAllow {
		t.Fatalf("ungated chain = %+v", chain)
	}
}

func TestEngine_DotSegmentsAreResolvedBeforeClassifying(t *testing.T) {
	routes := DefaultRouteTable()
	e := NewEngine(routes)
	gate := &RoleGate{Routes: routes, Allowed: []string{"ADMIN"}}

	tests := []struct {
		name string
		url  string
		id   Identity
		want Decision
	}{
		{
			name: "verification prefix escaped with dot segments",
			url:  "/verify-email/../settings",
			id:   anonymous,
			want: Decision{Action: ActionRedirect, Location: "/login?redirect=%2Fsettings", Reason: ReasonLoginRequired, State: StateAnonymous},
		},
		{
			name: "percent-encoded dot segments",
			url:  "/verify-email/%2e%2e/settings",
			id:   anonymous,
			want: Decision{Action: ActionRedirect, Location: "/login?redirect=%2Fsettings", Reason: ReasonLoginRequired, State: StateAnonymous},
		},
		{
			name: "climbing above the root",
			url:  "/api/public/../../settings",
			id:   anonymous,
			want: Decision{Action: ActionRedirect, Location: "/login?redirect=%2Fsettings", Reason: ReasonLoginRequired, State: StateAnonymous},
		},
		{
			name: "asset prefix does not bypass the role gate",
			url:  "/_next/../admin",
			id:   verified,
			want: Decision{Action: ActionRedirect, Location: "/dashboard", Reason: ReasonAdminRequired, State: StateAuthenticatedVerified},
		},
		{
			name: "duplicate slashes collapse",
			url:  "/invoice//abc",
			id:   anonymous,
			want: Decision{Action: ActionAllow, Reason: ReasonPublic, State: StateAnonymous},
		},
		{
			name: "dot segments that stay inside a public prefix",
			url:  "/invoice/x/../abc",
			id:   anonymous,
			want: Decision{Action: ActionAllow, Reason: ReasonPublic, State: StateAnonymous},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(NavigationFromURL(tt.url, tt.id), gate)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Evaluate(%s) mismatch (-want +got):\n%s", tt.url, diff)
			}
		})
	}

	// Callers that build a Navigation by hand get the same treatment.
	d := e.Decide(Navigation{Path: "/verify-email/../settings", Query: url.Values{}, Identity: anonymous})
	if d.Action != ActionRedirect || d.Location != "/login?redirect=%2Fsettings" {
		t.Fatalf("Decide on raw dotted path = %+v", d)
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"":                          "/",
		"/":                         "/",
		"settings":                  "/settings",
		"/verify-email/../settings": "/settings",
		"/a/./b/":                   "/a/b/",
		"/../..":                    "/",
		"//x//y":                    "/x/y",
		"/verify-email/abc/":        "/verify-email/abc/",
	}
	for in, want := range tests {
		if got := CleanPath(in); got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassify_AuthOnlyIsIndependent(t *testing.T) {
	rt := DefaultRouteTable()
	c := rt.Classify("/login", url.Values{})
	if c.Class != ClassPublic || !c.AuthOnly {
		t.Fatalf("login classification = %+v", c)
	}
	c = rt.Classify("/dashboard", url.Values{})
	if c.Class != ClassProtected || c.AuthOnly {
		t.Fatalf("dashboard classification = %+v", c)
	}
	c = rt.Classify("", nil)
	if c.Class != ClassProtected {
		t.Fatalf("empty path classification = %+v", c)
	}
}
