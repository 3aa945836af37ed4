package domain

type ctxKey string

// Context keys set by the auth middleware.
const (
	RequesterIDCtxKey    ctxKey = "bv-requesterId"
	RequesterEmailCtxKey ctxKey = "bv-requesterEmail"
)

// PresetColors are offered by clients when creating a container.
var PresetColors = []string{
	"#3b82f6", // blue
	"#10b981", // green
	"#8b5cf6", // purple
	"#f59e0b", // yellow
	"#ef4444", // red
	"#f97316", // orange
	"#06b6d4", // cyan
	"#84cc16", // lime
	"#ec4899", // pink
	"#22c55e", // emerald
	"#6366f1", // indigo
	"#64748b", // slate
}
