package domain

// ImageType represents the image formats the extraction model accepts.
type ImageType string

const (
	ImageTypeJPG ImageType = "jpg"
	ImageTypePNG ImageType = "png"
)

// AllowedContentTypes maps MIME content types to ImageType.
var AllowedContentTypes = map[string]ImageType{
	"image/jpeg": ImageTypeJPG,
	"image/png":  ImageTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to ImageType.
var AllowedExtensions = map[string]ImageType{
	"jpg":  ImageTypeJPG,
	"jpeg": ImageTypeJPG,
	"png":  ImageTypePNG,
}

// MaxImageSizeBytes is the upper bound on a single slip image; the vision
// API rejects larger payloads.
const MaxImageSizeBytes = 20 << 20

// Batch size bounds per run.
const (
	MinBatchTasks = 1
	MaxBatchTasks = 10
)
