package domain

import "time"

// Upload is a file a user handed us for import. The bytes live on disk
// under the upload directory; this row tracks them.
type Upload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Filename  string    `json:"filename"` // original name as uploaded
	Path      string    `json:"path"`     // relative path under the upload dir
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}
