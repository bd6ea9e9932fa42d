package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeySessionID  = "session_id"
	KeyRequestID  = "request_id"
	KeySection    = "section"
	KeyRevision   = "revision"
	KeyOutcome    = "outcome"
	KeyMessage    = "message_type"
	KeyTransport  = "transport"
	KeyPath       = "path"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SessionID(id string) slog.Attr    { return slog.String(KeySessionID, id) }
func RequestID(id string) slog.Attr    { return slog.String(KeyRequestID, id) }
func Section(s string) slog.Attr       { return slog.String(KeySection, s) }
func Revision(r uint64) slog.Attr      { return slog.Uint64(KeyRevision, r) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func MessageType(t string) slog.Attr   { return slog.String(KeyMessage, t) }
func Transport(t string) slog.Attr     { return slog.String(KeyTransport, t) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
