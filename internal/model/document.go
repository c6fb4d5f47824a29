package model

// Document is the subset of a `documents` row the delivery path reads.
// FilePath is either a bare storage key or a full storage URL; it is
// normalized before the object store is queried.
type Document struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id,omitempty"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path"`
}
