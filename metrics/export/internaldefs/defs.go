// Package internaldefs holds the shared metric name table used by both
// exporters, so Prometheus and OpenTelemetry output never drift apart.
package internaldefs

import (
	shelfauth "github.com/shelfd/shelfauth"
)

// CounterDef binds a MetricID to its exported name and help text.
type CounterDef struct {
	ID   shelfauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in export order.
var CounterDefs = []CounterDef{
	{ID: shelfauth.MetricRegisterSuccess, Name: "shelfauth_register_success_total", Help: "Completed registrations."},
	{ID: shelfauth.MetricLoginSuccess, Name: "shelfauth_login_success_total", Help: "Successful login attempts."},
	{ID: shelfauth.MetricLoginFailure, Name: "shelfauth_login_failure_total", Help: "Failed login attempts."},
	{ID: shelfauth.MetricSessionIssued, Name: "shelfauth_session_issued_total", Help: "Token pairs registered."},
	{ID: shelfauth.MetricSessionRotated, Name: "shelfauth_session_rotated_total", Help: "Access tokens minted through refresh."},
	{ID: shelfauth.MetricLogout, Name: "shelfauth_logout_total", Help: "Explicit refresh-token revocations."},
	{ID: shelfauth.MetricPasswordChanged, Name: "shelfauth_password_changed_total", Help: "Completed password changes."},
	{ID: shelfauth.MetricTokensRevoked, Name: "shelfauth_tokens_revoked_total", Help: "Registry entries removed by mass revocation."},
	{ID: shelfauth.MetricTokenRejected, Name: "shelfauth_token_rejected_total", Help: "Tokens whose id failed the registry check."},
	{ID: shelfauth.MetricStoreError, Name: "shelfauth_store_error_total", Help: "Registry operations lost to infrastructure failures."},
}
