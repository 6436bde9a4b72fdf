// Package backend provides the HTTP client for the video search inference
// backend. The backend is typically exposed through an ephemeral tunnel
// (ngrok), so every request carries the tunnel bypass header and responses
// are checked to actually be JSON before decoding: a warmed-down tunnel
// answers with an HTML interstitial page on an otherwise healthy HTTP path.
package backend

// HealthInfo is the response from GET /api/health.
type HealthInfo struct {
	// Status is "healthy" when the backend is fully operational.
	Status string `json:"status"`
	// EngineInitialized indicates the inference engine finished loading.
	EngineInitialized bool `json:"engine_initialized"`
	// GPUAvailable indicates a GPU is visible to the backend.
	GPUAvailable bool `json:"gpu_available"`
	// GPUName is the GPU model name, if any.
	GPUName string `json:"gpu_name,omitempty"`
}

// IndexStats is the response from GET /api/stats.
type IndexStats struct {
	// TotalVectors is the number of vectors in the index.
	TotalVectors int64 `json:"total_vectors"`
	// IndexName is the name of the vector index.
	IndexName string `json:"index_name"`
	// Dimension is the embedding dimension.
	Dimension int `json:"dimension"`
}

// datesResponse is the response from GET /api/dates.
type datesResponse struct {
	Dates []string `json:"dates"`
}

// UploadReply is the response from POST /api/upload.
type UploadReply struct {
	// Filename is the backend-local file handle used to start processing.
	Filename string `json:"filename"`
	// OriginalFilename is the name the file was uploaded with.
	OriginalFilename string `json:"original_filename"`
}

// ProcessRequest is the body of POST /api/process.
// Optional string fields are pointers so that unset values are omitted from
// the wire entirely rather than sent as empty strings.
type ProcessRequest struct {
	VideoName          *string `json:"video_name,omitempty"`
	VideoDate          *string `json:"video_date,omitempty"`
	VideoID            *string `json:"video_id,omitempty"`
	CloudinaryURL      *string `json:"cloudinary_url,omitempty"`
	SaveFrames         bool    `json:"save_frames"`
	UploadToPinecone   bool    `json:"upload_to_pinecone"`
	UseObjectDetection bool    `json:"use_object_detection"`
}

// processResponse is the response from POST /api/process.
type processResponse struct {
	JobID string `json:"job_id"`
}

// JobStatusReply is the response from GET /api/job/{id}.
type JobStatusReply struct {
	// JobID is the job identifier; present in list responses.
	JobID string `json:"job_id,omitempty"`
	// Status is one of "queued", "processing", "completed", "failed".
	Status string `json:"status"`
	// Progress is a free-form progress message.
	Progress string `json:"progress,omitempty"`
	// Result is set when Status is "completed".
	Result *JobResult `json:"result,omitempty"`
	// Error is set when Status is "failed".
	Error string `json:"error,omitempty"`
}

// jobsResponse is the response from GET /api/jobs.
type jobsResponse struct {
	Jobs []JobStatusReply `json:"jobs"`
}

// JobResult contains the processing statistics of a completed job.
type JobResult struct {
	FramesExtracted       uint32  `json:"frames_extracted"`
	FramesCaptioned       uint32  `json:"frames_captioned"`
	EmbeddingsGenerated   uint32  `json:"embeddings_generated"`
	EmbeddingsIndexed     uint32  `json:"embeddings_indexed"`
	ProcessingSeconds     float64 `json:"processing_time_seconds"`
	FrameReductionPercent float64 `json:"frame_reduction_percent"`
}

// SearchRequest is the body of POST /api/search.
// Filters are pointers so that unset filters are omitted from the wire,
// keeping the backend's "no filter" semantics unambiguous.
type SearchRequest struct {
	Query               string  `json:"query"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	DateFilter          *string `json:"date_filter,omitempty"`
	NamespaceFilter     *string `json:"namespace_filter,omitempty"`
}

// SearchRecord is a single result row as returned by the backend.
// Ordering within a response is descending by similarity score.
type SearchRecord struct {
	VideoName       string  `json:"video_name"`
	Caption         string  `json:"caption"`
	Timestamp       float64 `json:"timestamp"`
	TimeFormatted   string  `json:"time_formatted,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
	FrameID         string  `json:"frame_id"`
	VideoDate       string  `json:"video_date,omitempty"`
	CloudinaryURL   string  `json:"cloudinary_url,omitempty"`
}

// SearchReply is the response from POST /api/search.
type SearchReply struct {
	Results []SearchRecord `json:"results"`
	Count   int            `json:"count"`
}

// errorResponse is the backend's standard error body.
type errorResponse struct {
	Detail string `json:"detail"`
}
