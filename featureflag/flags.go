package featureflag

type Flag string

const (
	// Exposes the quadtree over /debug/quadtree and /debug/overlay.
	FlagDebugQuadtree Flag = "DEBUG_QUADTREE"

	FlagDisableMovement   Flag = "DISABLE_MOVEMENT"
	FlagDisablePerception Flag = "DISABLE_PERCEPTION"
	FlagDisableCollision  Flag = "DISABLE_COLLISION"

	// Indexes jeeps too, which the default policy leaves out.
	FlagIndexVehicles Flag = "INDEX_VEHICLES"
)

// ModuleFlag returns the flag disabling the module with the given name.
func ModuleFlag(moduleName string) (Flag, bool) {
	switch moduleName {
	case "movement":
		return FlagDisableMovement, true
	case "perception":
		return FlagDisablePerception, true
	case "collision":
		return FlagDisableCollision, true
	default:
		return "", false
	}
}
