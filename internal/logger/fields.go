package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldCycleID identifies one sync cycle (list → process → mark pass).
	FieldCycleID = "cycle_id"

	// FieldPhotoID is the source-store identifier of the photo being handled.
	FieldPhotoID = "photo_id"

	// FieldComponent is the component/module name.
	FieldComponent = "component"

	// FieldSource is the photo source identifier.
	FieldSource = "source"
)
