package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/access"
	"github.com/samajportal/apiserver/internal/metrics"
	"github.com/samajportal/apiserver/internal/session"
)

// Next actions offered with a denial.
const (
	actionSignIn       = "sign_in"
	actionVerify       = "complete_verification"
	actionReturnHome   = "return_home"
	errUnauthenticated = "unauthenticated"
	errForbidden       = "forbidden"
)

// DeniedResponse is the body of a gate denial. Clients render it with the
// given presentation and offer the action.
type DeniedResponse struct {
	Error        string              `json:"error"`
	Feature      access.Feature      `json:"feature,omitempty"`
	Message      string              `json:"message"`
	Action       string              `json:"action"`
	Target       access.Target       `json:"target"`
	Presentation access.Presentation `json:"presentation"`
	Decision     access.Kind         `json:"decision"`
}

// Gate applies access decisions to HTTP requests.
type Gate struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGate constructs a Gate that counts decisions on m, which may be nil.
func NewGate(m *metrics.Metrics, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{metrics: m, logger: logger}
}

// Decide evaluates f for the session attached to r and counts the result.
func (g *Gate) Decide(r *http.Request, f access.Feature) access.Decision {
	st := session.CurrentFromContext(r.Context())
	d, err := st.Evaluate(f)
	if err != nil {
		// Only reachable with a feature that has no rule; deny.
		g.logger.Error("gate evaluation failed", zap.String("feature", string(f)), zap.Error(err))
		return access.Decision{Kind: access.HideOrRedirect, Target: access.TargetHome, Presentation: access.PresentRedirect}
	}
	g.metrics.ObserveGate(string(f), string(d.Kind))
	return d
}

// Require lets the request through only when f is allowed. It panics at
// route wiring when f has no rule.
func (g *Gate) Require(f access.Feature) func(http.Handler) http.Handler {
	f = access.MustFeature(string(f))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Decide(r, f)
			if !d.Allowed() {
				writeDenied(w, f, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession lets only authenticated callers through. It guards
// member-only routes that no feature rule covers.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.CurrentFromContext(r.Context()).Authenticated {
			writeDenied(w, "", access.Decision{
				Kind:         access.HideOrRedirect,
				Target:       access.TargetLogin,
				Message:      "Please sign in to continue.",
				Presentation: access.PresentRedirect,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// denialStatus maps a denial to its status code: a login target means the
// caller has no session, everything else is a refusal of a known caller.
func denialStatus(d access.Decision) int {
	if d.Target == access.TargetLogin {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

func writeDenied(w http.ResponseWriter, f access.Feature, d access.Decision) {
	status := denialStatus(d)
	body := DeniedResponse{
		Error:        errForbidden,
		Feature:      f,
		Message:      d.Message,
		Action:       actionFor(d.Target),
		Target:       d.Target,
		Presentation: d.Presentation,
		Decision:     d.Kind,
	}
	if status == http.StatusUnauthorized {
		body.Error = errUnauthenticated
	}
	writeJSON(w, status, body)
}

func actionFor(t access.Target) string {
	switch t {
	case access.TargetLogin:
		return actionSignIn
	case access.TargetRegister:
		return actionVerify
	default:
		return actionReturnHome
	}
}
