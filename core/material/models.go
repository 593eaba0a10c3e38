package material

import (
	"time"
)

// Material is an uploaded study material. Materials are append-only.
type Material struct {
	ID           string    `json:"id"`
	Link         string    `json:"link"`
	Username     string    `json:"username"`
	MaterialName string    `json:"materialName"`
	Subject      string    `json:"subject"`
	FileFormat   string    `json:"fileFormat"` // lowercase extension, without the dot
	UploadedAt   time.Time `json:"uploadedAt"` // UTC
}

// NewMaterial holds the optional form fields sent along with an uploaded file.
type NewMaterial struct {
	Username     string `form:"username"`
	MaterialName string `form:"materialName"`
	Subject      string `form:"subject"`
}

// Upload describes a file to forward to the file storage.
type Upload struct {
	Filename    string
	ContentType string
}
