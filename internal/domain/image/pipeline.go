package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"leafai-server-go/internal/platform/config"
	"leafai-server-go/internal/platform/logging"
)

// Pipeline streams an upload through validation and base64 encoding in one
// pass, so oversized payloads never fully land in memory.
type Pipeline struct {
	validator *Validator
	logger    *logging.Logger
	policy    *config.SecurityConfig
}

// Options configures the pipeline behaviour.
type Options struct {
	Policy *config.SecurityConfig
	Logger *logging.Logger
}

// Input describes a streaming image payload.
type Input struct {
	Reader       io.Reader
	DeclaredMIME string
	Source       string
}

// Output contains the sanitised artefacts produced by the pipeline.
type Output struct {
	Base64     string
	Bytes      []byte
	Format     string
	MIME       string
	Validation ValidationResult
}

// NewPipeline constructs a streaming image pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Policy == nil {
		return nil, fmt.Errorf("security policy is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.DefaultLogger
	}

	return &Pipeline{
		validator: NewValidator(opts.Policy, opts.Logger),
		logger:    opts.Logger,
		policy:    opts.Policy,
	}, nil
}

// Validator exposes the underlying validator for callers that only need the
// policy checks.
func (p *Pipeline) Validator() *Validator {
	return p.validator
}

// Process streams the input through validation and base64 encoding.
func (p *Pipeline) Process(ctx context.Context, input Input) (*Output, error) {
	if input.Reader == nil {
		return nil, fmt.Errorf("image reader is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxSize := p.policy.MaxFileSize
	if maxSize <= 0 {
		maxSize = config.MaxUploadBytes
	}

	limited := &io.LimitedReader{
		R: input.Reader,
		N: maxSize + 1,
	}

	rawBuf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	base64Buf := bytes.NewBuffer(make([]byte, 0, 64*1024))

	encoder := base64.NewEncoder(base64.StdEncoding, base64Buf)
	writer := io.MultiWriter(rawBuf, encoder)

	if _, err := io.Copy(writer, limited); err != nil {
		return nil, fmt.Errorf("stream image bytes: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("finalise base64 encoding: %w", err)
	}

	if limited.N <= 0 {
		return nil, fmt.Errorf("image exceeds maximum size of %d bytes", maxSize)
	}

	rawBytes := rawBuf.Bytes()
	validation := p.validator.ValidateBytes(rawBytes, input.DeclaredMIME)
	if !validation.IsValid {
		if validation.Error != nil {
			return nil, validation.Error
		}
		return nil, fmt.Errorf("image validation failed")
	}

	sanitised := make([]byte, len(rawBytes))
	copy(sanitised, rawBytes)

	return &Output{
		Base64:     base64Buf.String(),
		Bytes:      sanitised,
		Format:     validation.Format,
		MIME:       validation.MIME,
		Validation: validation,
	}, nil
}
