package access

// Decision is the single outcome of one navigation.
//
// Exactly one Action is set; Location is empty only for ActionAllow.
type Decision struct {
	Action   Action       `json:"action"`
	Location string       `json:"location,omitempty"`
	Reason   Reason       `json:"reason"`
	State    SessionState `json:"state"`
}

type Action string

const (
	ActionAllow    Action = "allow"
	ActionRedirect Action = "redirect"
	ActionRewrite  Action = "rewrite"
)

// Reason is intended for internal logs and metrics.
type Reason string

const (
	ReasonVerificationLink  Reason = "verification_link"
	ReasonVerificationRoute Reason = "verification_route"
	ReasonAsset             Reason = "asset"
	ReasonPublic            Reason = "public"
	ReasonLoginRequired     Reason = "login_required"
	ReasonEmailUnverified   Reason = "email_unverified"
	ReasonAuthOnly          Reason = "auth_only"
	ReasonAuthenticated     Reason = "authenticated"
	ReasonAdminRequired     Reason = "admin_required"
)

func allow(r Reason, s SessionState) Decision {
	return Decision{Action: ActionAllow, Reason: r, State: s}
}

func redirect(loc string, r Reason, s SessionState) Decision {
	return Decision{Action: ActionRedirect, Location: loc, Reason: r, State: s}
}
