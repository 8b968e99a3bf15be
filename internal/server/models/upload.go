package models

// UploadResult describes a stored (or about to be stored) listing image.
type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
	// UploadURL is set for presigned uploads: the client PUTs the bytes there.
	UploadURL string `json:"uploadUrl,omitempty"`
}
