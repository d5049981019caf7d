package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"leafai-server-go/internal/platform/config"
	"leafai-server-go/internal/platform/logging"
)

// Validator performs layered checks against incoming image payloads: the
// upload policy first (type, then size), then structural validation of the
// actual bytes.
type Validator struct {
	policy *config.SecurityConfig
	logger *logging.Logger
}

func NewValidator(policy *config.SecurityConfig, logger *logging.Logger) *Validator {
	return &Validator{
		policy: policy,
		logger: logger,
	}
}

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
	"bmp":  {0x42, 0x4D},
}

// MIMEAllowed reports whether the declared content type is inside the
// policy's allow-list. Checked before size on purpose: validation is
// sequential short-circuit, type first.
func (v *Validator) MIMEAllowed(mime string) bool {
	mime = NormalizeMIME(mime)
	for _, allowed := range v.policy.AllowedTypes {
		if allowed == mime {
			return true
		}
	}
	return false
}

// ValidateBytes runs the full validation chain over a raw payload.
func (v *Validator) ValidateBytes(raw []byte, declaredMIME string) ValidationResult {
	result := ValidationResult{IsValid: false, MIME: NormalizeMIME(declaredMIME)}

	if len(raw) == 0 {
		result.Error = fmt.Errorf("empty image payload")
		return result
	}

	if declaredMIME != "" && !v.MIMEAllowed(declaredMIME) {
		result.Error = fmt.Errorf("unsupported content type: %s", declaredMIME)
		result.SecurityRisk = "unapproved type"
		return result
	}

	if int64(len(raw)) > v.policy.MaxFileSize {
		result.Error = fmt.Errorf(
			"file size exceeds limit: %d bytes (max %d bytes)",
			len(raw),
			v.policy.MaxFileSize,
		)
		result.SecurityRisk = "file too large"
		v.logger.Warn(
			"rejected oversized image: size=%d max_size=%d mime=%s",
			len(raw),
			v.policy.MaxFileSize,
			declaredMIME,
		)
		return result
	}

	decoded := v.validateImageDecoding(raw)
	if !decoded.IsValid {
		if declaredMIME != "" && !v.matchesSignature(raw, declaredMIME) {
			actualHeader := fmt.Sprintf("%x", raw[:min(len(raw), 16)])
			v.logger.Warn(
				"file signature mismatch: declared_mime=%s actual_header=%s",
				declaredMIME,
				actualHeader,
			)
		}
		decoded.MIME = result.MIME
		return decoded
	}

	// The bytes may decode as a format outside the allow-list even when the
	// declared type looked fine (a webp renamed to .png, for instance).
	actualMIME := FormatMIME(decoded.Format)
	if actualMIME != "" && !v.MIMEAllowed(actualMIME) {
		result.Format = decoded.Format
		result.Error = fmt.Errorf("unsupported content type: %s", actualMIME)
		result.SecurityRisk = "declared type does not match content"
		return result
	}

	if v.policy.EnableDeepScan && v.scanForMaliciousContent(raw) {
		result.Error = fmt.Errorf("potential malicious content detected")
		result.SecurityRisk = "suspicious content"
		return result
	}

	decoded.IsValid = true
	decoded.MIME = actualMIME
	decoded.FileSize = int64(len(raw))
	return decoded
}

func (v *Validator) matchesSignature(raw []byte, mime string) bool {
	format := strings.TrimPrefix(NormalizeMIME(mime), "image/")
	if format == "jpg" {
		format = "jpeg"
	}
	signature, ok := imageSignatures[format]
	if !ok || len(signature) == 0 {
		return true
	}
	if len(raw) < len(signature) {
		return false
	}
	return bytes.Equal(signature, raw[:len(signature)])
}

func (v *Validator) scanForMaliciousContent(raw []byte) bool {
	// Executables and archives masquerading as images.
	suspiciousSignatures := [][]byte{
		{0x4D, 0x5A},
		{0x25, 0x50, 0x44, 0x46},
		{0x50, 0x4B, 0x03, 0x04},
		{0x1F, 0x8B, 0x08},
	}

	for _, signature := range suspiciousSignatures {
		if bytes.HasPrefix(raw, signature) {
			v.logger.Warn(
				"rejected payload with suspicious signature: signature_hex=%x",
				signature,
			)
			return true
		}
	}
	return false
}

func (v *Validator) validateImageDecoding(raw []byte) ValidationResult {
	result := ValidationResult{}
	reader := bytes.NewReader(raw)

	cfg, actualFormat, err := image.DecodeConfig(reader)
	if err != nil {
		result.Error = fmt.Errorf("decode image config: %w", err)
		result.SecurityRisk = "corrupted image data"
		return result
	}
	result.Format = actualFormat

	if cfg.Width > v.policy.MaxWidth || cfg.Height > v.policy.MaxHeight {
		result.Error = fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, v.policy.MaxWidth, v.policy.MaxHeight)
		result.SecurityRisk = "dimensions too large"
		return result
	}

	totalPixels := int64(cfg.Width) * int64(cfg.Height)
	if totalPixels > v.policy.MaxPixels {
		result.Error = fmt.Errorf("pixel count exceeds limit: %d (max %d)", totalPixels, v.policy.MaxPixels)
		result.SecurityRisk = "pixel count too high"
		return result
	}

	result.IsValid = true
	result.Width = cfg.Width
	result.Height = cfg.Height
	result.FileSize = int64(len(raw))

	v.logger.Debug(
		"image validation success: format=%s width=%d height=%d size=%d",
		result.Format,
		result.Width,
		result.Height,
		result.FileSize,
	)

	return result
}
