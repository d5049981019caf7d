package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"leafai-server-go/internal/platform/config"
	"leafai-server-go/internal/platform/logging"
)

// User-facing messages; they match the backend's own wording so both sides
// of the validation report identically.
const (
	MessageInvalidType = "Only PNG and JPG/JPEG files are allowed."
	MessageTooLarge    = "File too large. Max 10 MB."
	MessageGeneric     = "Analysis failed. Please try again."
)

// Analyzer produces a raw analysis response for an upload and prompt. It is
// injected so transports and tests can substitute a fake.
type Analyzer interface {
	Analyze(ctx context.Context, upload Upload, prompt string) (json.RawMessage, error)
}

// Controller mediates file acquisition, enforces the validation policy and
// drives a single submission at a time. One submission moves through
// Idle -> Loading -> {Success, Failure}; loading resolves exactly once.
type Controller struct {
	mu       sync.Mutex
	analyzer Analyzer
	logger   *logging.Logger

	file        *Upload
	dragOver    bool
	loading     bool
	errMessage  string
	resultText  string
	resultModel string
	lastErr     error
}

func NewController(analyzer Analyzer, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Controller{
		analyzer: analyzer,
		logger:   logger,
	}
}

// SelectFile takes the first of the offered uploads, validates it, and
// makes it the selected file on success. Extra uploads from a multi-file
// drop are ignored. Returns whether a file ended up selected.
func (c *Controller) SelectFile(uploads ...Upload) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(uploads) == 0 {
		return false
	}
	upload := uploads[0]

	if !c.validateLocked(upload) {
		c.file = nil
		return false
	}

	c.file = &upload
	return true
}

// validateLocked applies the policy checks in order: type, then size. The
// first failure sets the error message and stops; success clears any prior
// error.
func (c *Controller) validateLocked(upload Upload) bool {
	if !mimeAllowed(upload.MIME) {
		c.errMessage = MessageInvalidType
		return false
	}
	if upload.Size() > config.MaxUploadBytes {
		c.errMessage = MessageTooLarge
		return false
	}
	c.errMessage = ""
	return true
}

func mimeAllowed(mime string) bool {
	switch mime {
	case "image/png", "image/jpeg":
		return true
	}
	return false
}

// Clear discards the selected file and any error. Idempotent.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = nil
	c.errMessage = ""
}

func (c *Controller) DragOver() {
	c.mu.Lock()
	c.dragOver = true
	c.mu.Unlock()
}

func (c *Controller) DragLeave() {
	c.mu.Lock()
	c.dragOver = false
	c.mu.Unlock()
}

// Submit runs one submission cycle. It is a no-op when no file is
// selected, when a validation error is pending, or when a submission is
// already in flight. Once the request is issued there is no cancellation;
// the loading state resolves when the analyzer returns.
func (c *Controller) Submit(ctx context.Context, prompt string) {
	c.mu.Lock()
	if c.file == nil || c.errMessage != "" || c.loading {
		c.mu.Unlock()
		return
	}
	upload := *c.file
	c.loading = true
	c.resultText = ""
	c.resultModel = ""
	c.lastErr = nil
	c.mu.Unlock()

	raw, err := c.analyzer.Analyze(ctx, upload, prompt)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		c.lastErr = err
		c.errMessage = errorMessage(err)
		c.logger.WarnTag("ANALYSIS", "submission failed: %v", err)
		return
	}

	outcome, err := DecodeOutcome(raw)
	if err != nil {
		// Unrecognized shapes degrade silently: log, show nothing.
		c.logger.DebugTag("ANALYSIS", "response shape not recognized: %v", err)
		return
	}
	c.resultText = outcome.Text
	c.resultModel = outcome.Model
}

// errorMessage surfaces the server's detail when one is available and falls
// back to the generic message otherwise.
func errorMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Detail != "" {
		return reqErr.Detail
	}
	return MessageGeneric
}

func (c *Controller) Selected() (Upload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return Upload{}, false
	}
	return *c.file, true
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) IsDragOver() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragOver
}

func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMessage
}

// Result returns the display text and model name from the last successful
// submission.
func (c *Controller) Result() (text, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultText, c.resultModel
}

// Err returns the raw error from the last submission, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
