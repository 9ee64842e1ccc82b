package domain

const (
	// Keys merged into the analysis document
	KeyImageURL       = "imageurl"
	KeySourceImageURL = "4chanimageurl"
	KeyMirrorImageURL = "mirrorimageurl"

	// Platform tags identifying the failing stage
	PlatformRequest   = "request"
	PlatformCatalog   = "catalog"
	PlatformSelection = "selection"
	PlatformAnalysis  = "analysis"
	PlatformDownload  = "download"
	PlatformStorage   = "storage"

	HealthMessage = "What up, fam?"
)

// DefaultDisallowedExts are the media types the analysis service cannot process.
var DefaultDisallowedExts = []string{".gif", ".webm"}
