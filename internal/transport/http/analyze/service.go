package analyze

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leafai-server-go/internal/core/providers/vision"
	"leafai-server-go/internal/domain/analysis"
	"leafai-server-go/internal/domain/analysis/cache"
	"leafai-server-go/internal/domain/events"
	domainimage "leafai-server-go/internal/domain/image"
	"leafai-server-go/internal/platform/config"
	"leafai-server-go/internal/platform/errors"
	"leafai-server-go/internal/platform/logging"
	httptransport "leafai-server-go/internal/transport/http"
)

// Service is the HTTP transport for leaf analysis.
type Service struct {
	logger   *logging.Logger
	config   *config.Config
	pipeline *domainimage.Pipeline
	analyzer analysis.Analyzer
	store    cache.Store
	source   string
}

// NewService wires the analyze endpoints to their collaborators. The cache
// store may be nil when result caching is disabled.
func NewService(
	cfg *config.Config,
	logger *logging.Logger,
	pipeline *domainimage.Pipeline,
	analyzer analysis.Analyzer,
	store cache.Store,
) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "config is required")
	}
	if logger == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "logger is required")
	}
	if pipeline == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "image pipeline is required")
	}
	if analyzer == nil {
		return nil, errors.New(errors.KindConfig, "analyze.new", "analyzer is required")
	}

	source := cfg.Selected.Vision
	if cfg.Analyze.Mode == "remote" {
		source = "remote"
	}

	return &Service{
		logger:   logger,
		config:   cfg,
		pipeline: pipeline,
		analyzer: analyzer,
		store:    store,
		source:   source,
	}, nil
}

// Register mounts the analyze routes on the given group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/health", s.handleHealth)
	router.GET("/analyze", s.handleGet)
	router.POST("/analyze", s.handlePost)

	s.logger.InfoTag("HTTP", "analyze routes registered")
	return nil
}

// handleHealth answers liveness probes.
// @Summary Liveness probe
// @Produce json
// @Success 200 {object} object
// @Router /health [get]
func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGet reports endpoint status for quick manual checks.
// @Summary Analyze endpoint status
// @Produce plain
// @Success 200 {string} string
// @Router /analyze [get]
func (s *Service) handleGet(c *gin.Context) {
	c.String(http.StatusOK, fmt.Sprintf(
		"leaf analysis endpoint is running (mode=%s, source=%s)",
		s.config.Analyze.Mode, s.source,
	))
}

// handlePost runs one leaf image analysis.
// @Summary Analyze a leaf image
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "leaf image (PNG or JPEG)"
// @Param prompt formData string false "analysis question"
// @Success 200 {object} AnalyzeData
// @Failure 400 {object} object
// @Failure 502 {object} object
// @Router /analyze [post]
func (s *Service) handlePost(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	declaredMIME := header.Header.Get("Content-Type")
	if declaredMIME == "" {
		declaredMIME = domainimage.MIMEFromFilename(header.Filename)
	}

	// Policy checks run in order: type first, then size.
	if !s.pipeline.Validator().MIMEAllowed(declaredMIME) {
		s.reject(c, http.StatusBadRequest, analysis.MessageInvalidType, header.Filename)
		return
	}
	if header.Size > s.config.Security.MaxFileSize {
		s.reject(c, http.StatusBadRequest, analysis.MessageTooLarge, header.Filename)
		return
	}

	output, err := s.pipeline.Process(c.Request.Context(), domainimage.Input{
		Reader:       file,
		DeclaredMIME: declaredMIME,
		Source:       "upload",
	})
	if err != nil {
		s.logger.WarnTag("HTTP", "image rejected: filename=%s err=%v", header.Filename, err)
		s.reject(c, http.StatusBadRequest, err.Error(), header.Filename)
		return
	}

	upload := analysis.Upload{
		Filename: header.Filename,
		MIME:     output.MIME,
		Data:     output.Bytes,
	}

	if s.config.Analyze.SaveUploads {
		if path, err := s.saveUpload(upload, output.Format); err != nil {
			s.logger.WarnTag("HTTP", "failed to persist upload: %v", err)
		} else {
			s.logger.DebugTag("HTTP", "upload saved: %s", path)
		}
	}

	prompt := strings.TrimSpace(c.Request.FormValue("prompt"))
	if prompt == "" {
		prompt = s.config.Analyze.DefaultPrompt
	}

	s.logger.InfoTag("HTTP", "analyze called: filename=%s size=%d mime=%s prompt_len=%d",
		header.Filename, upload.Size(), upload.MIME, len(prompt))

	cacheKey := ""
	if s.cacheEnabled() {
		cacheKey = cache.Key(upload.Data, prompt)
		if entry, found, err := s.store.Get(c.Request.Context(), cacheKey); err != nil {
			s.logger.WarnTag("CACHE", "lookup failed: %v", err)
		} else if found {
			s.logger.InfoTag("CACHE", "hit: filename=%s", header.Filename)
			s.respondResult(c, upload, prompt, entry.Text, entry.Model, true, 0)
			return
		}
	}

	start := time.Now()
	ctrl := analysis.NewController(s.analyzer, s.logger)
	ctrl.SelectFile(upload)
	ctrl.Submit(c.Request.Context(), prompt)
	duration := time.Since(start)

	if err := ctrl.Err(); err != nil {
		status := http.StatusBadGateway
		var reqErr *analysis.RequestError
		if goerrors.As(err, &reqErr) && reqErr.StatusCode > 0 {
			status = reqErr.StatusCode
		}
		s.reject(c, status, ctrl.ErrorMessage(), header.Filename)
		return
	}

	text, model := ctrl.Result()
	text = vision.CleanModelText(text)

	if s.cacheEnabled() && text != "" {
		entry := cache.Entry{Text: text, Model: model, Created: time.Now().Unix()}
		if err := s.store.Set(c.Request.Context(), cacheKey, entry); err != nil {
			s.logger.WarnTag("CACHE", "store failed: %v", err)
		}
	}

	s.respondResult(c, upload, prompt, text, model, false, duration)
}

func (s *Service) cacheEnabled() bool {
	return s.store != nil && s.config.Cache.Enabled
}

func (s *Service) respondResult(
	c *gin.Context,
	upload analysis.Upload,
	prompt, text, model string,
	cached bool,
	duration time.Duration,
) {
	httptransport.RespondSuccess(c, http.StatusOK, AnalyzeData{
		Filename:    upload.Filename,
		ContentType: upload.MIME,
		Prompt:      prompt,
		Model:       model,
		Message:     text,
		Source:      s.source,
		Cached:      cached,
	}, "analysis complete")

	events.PublishCompleted(events.AnalysisCompleted{
		Filename:   upload.Filename,
		MIME:       upload.MIME,
		Model:      model,
		PromptLen:  len(prompt),
		ImageBytes: upload.Size(),
		Duration:   duration,
		Cached:     cached,
	})
}

func (s *Service) reject(c *gin.Context, status int, message, filename string) {
	httptransport.RespondError(c, status, message)
	events.PublishFailed(events.AnalysisFailed{
		Filename: filename,
		Reason:   message,
		Status:   status,
	})
}

// saveUpload persists the sanitised image under a unique name.
func (s *Service) saveUpload(upload analysis.Upload, format string) (string, error) {
	dir := s.config.Analyze.UploadsDir
	if dir == "" {
		dir = "data/uploads"
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", errors.Wrap(errors.KindStorage, "analyze.save_upload", "create uploads directory", err)
	}

	name := fmt.Sprintf("%s_%s.%s",
		time.Now().UTC().Format("20060102T150405"),
		uuid.NewString(),
		format,
	)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, upload.Data, 0o644); err != nil {
		return "", errors.Wrap(errors.KindStorage, "analyze.save_upload", "write image file", err)
	}
	return path, nil
}
