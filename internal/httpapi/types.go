package httpapi

// ImportStatus describes the most recent background import.
type ImportStatus struct {
	LastRunAt    string `json:"last_run_at"`
	LastOkAt     string `json:"last_ok_at"`
	LastError    string `json:"last_error"`
	LastImported int    `json:"last_imported"`
	LastSkipped  int    `json:"last_skipped"`
	LastErrors   int    `json:"last_errors"`
	Running      bool   `json:"running"`
}
