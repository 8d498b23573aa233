package domain

import "time"

// DatabaseConnection holds the metadata for reaching an external
// database used as an import source. The password is kept out of the
// row and supplied at connect time.
type DatabaseConnection struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Driver    string    `json:"driver"` // "postgres" | "mysql"
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Database  string    `json:"database"`
	Username  string    `json:"username"`
	SSLMode   string    `json:"sslMode"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
