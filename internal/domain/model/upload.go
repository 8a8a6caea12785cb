package model

// ECRUpload carries one week's ranking table submitted over the API.
// ID makes the upload idempotent; it is generated when empty.
type ECRUpload struct {
	ID      string     `json:"upload_id"`
	Week    int        `json:"week"`
	Entries []ECREntry `json:"entries"`
}

// UploadResult acknowledges an ECRUpload.
type UploadResult struct {
	ID        string `json:"upload_id"`
	Week      int    `json:"week"`
	Accepted  int    `json:"accepted"`
	Duplicate bool   `json:"duplicate"`
	Version   uint64 `json:"version"`
}

// League is a fantasy league as listed by a platform.
type League struct {
	ID           string `json:"league_id"`
	Name         string `json:"name"`
	Season       string `json:"season"`
	TotalRosters int    `json:"total_rosters"`
}
