package analyze

// AnalyzeData is the payload inside a successful analyze envelope.
type AnalyzeData struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	Message     string `json:"message"`
	Source      string `json:"source"`
	Cached      bool   `json:"cached,omitempty"`
}
