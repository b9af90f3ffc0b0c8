package dto

type StartScanRequest struct {
	// Path overrides the configured source directory when set.
	Path  string `json:"path"`
	Limit int    `json:"limit"`
	// Sync makes the call wait for the scan to finish and return the
	// final job instead of just its id.
	Sync bool `json:"sync"`
}

type StartScanResponse struct {
	JobID string `json:"job_id"`
}

type ReconcileRequest struct {
	Repair bool `json:"repair"`
	Sync   bool `json:"sync"`
}
