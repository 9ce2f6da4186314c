package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRuleID     = "rule_id"
	KeyRuleName   = "rule_name"
	KeyMode       = "mode"
	KeyDesired    = "desired"
	KeyObserved   = "observed"
	KeyAction     = "action"
	KeyPassID     = "pass_id"
	KeyBootID     = "boot_id"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RuleID(id string) slog.Attr      { return slog.String(KeyRuleID, id) }
func RuleName(n string) slog.Attr     { return slog.String(KeyRuleName, n) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Desired(d string) slog.Attr      { return slog.String(KeyDesired, d) }
func Observed(o string) slog.Attr     { return slog.String(KeyObserved, o) }
func Action(a string) slog.Attr       { return slog.String(KeyAction, a) }
func PassID(id string) slog.Attr      { return slog.String(KeyPassID, id) }
func BootID(id string) slog.Attr      { return slog.String(KeyBootID, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
