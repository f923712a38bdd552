package models

// SourceType identifies how a document's content should be interpreted.
type SourceType string

const (
	SourceText SourceType = "text"
	SourceURL  SourceType = "url"
	SourceFile SourceType = "file"
)

// Document is a unit of content submitted for ingestion. For SourceText the
// Content field holds the raw text, for SourceURL it holds the URL, and for
// SourceFile the file bytes are carried in Data with Content unused.
type Document struct {
	Source   SourceType
	Name     string
	Content  string
	Data     []byte
	Metadata map[string]interface{}
}

// Passage is a retrieved chunk of context with its relevance score.
type Passage struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// ChatTurn records one question/answer exchange together with the context
// passages that were fed to the model. Turns are never mutated once created.
type ChatTurn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Context  []Passage `json:"context"`
}

// Ingestion job states reported by the retrieval service.
const (
	JobQueued        = "QUEUED"
	JobPreProcessing = "PRE_PROCESSING"
	JobProcessing    = "PROCESSING"
	JobCompleted     = "COMPLETED"
	JobFailed        = "FAILED"
	JobCancelled     = "CANCELLED"
)

// IngestJob tracks a server-side ingestion job.
type IngestJob struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j IngestJob) Terminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}
