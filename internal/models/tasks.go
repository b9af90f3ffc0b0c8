package models

// ScanTask is the payload of a "scan" job.
type ScanTask struct {
	Root  string `json:"root"`
	Limit int    `json:"limit,omitempty"`
}

// BatchTask is the payload of a "thumbnail" or "face-recognition" job:
// one directory-local batch of asset ids produced by a scan.
type BatchTask struct {
	BatchID  string   `json:"batch_id"`
	AssetIDs []string `json:"asset_ids"`
}

// ReconcileTask is the payload of a "reconcile" job.
type ReconcileTask struct {
	Repair bool `json:"repair"`
}

// ScanResult is the result of a completed scan job.
type ScanResult struct {
	DiscoveredFiles int      `json:"discovered_files"`
	FilesToProcess  int      `json:"files_to_process"`
	BatchesCreated  int      `json:"batches_created"`
	JobIDs          []string `json:"job_ids,omitempty"`
}

// ThumbnailResult is the result of a completed thumbnail job.
type ThumbnailResult struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
}

// RecognitionResult is the result of a completed face-recognition job.
type RecognitionResult struct {
	Processed     int `json:"processed"`
	FacesDetected int `json:"faces_detected"`
	AutoAssigned  int `json:"auto_assigned"`
	NeedsReview   int `json:"needs_review"`
	Unrecognized  int `json:"unrecognized"`
	Skipped       int `json:"skipped"`
	Errors        int `json:"errors"`
}
