// Package server exposes the analyzer over HTTP: page images go in, result
// records and spreadsheets come out. PDF rasterization stays upstream; the
// endpoint accepts decoded page images.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"formscan/internal/analyze"
	"formscan/internal/export"
	"formscan/internal/history"
	"formscan/internal/merge"
	"formscan/internal/overlay"
	"formscan/internal/result"
	"formscan/internal/template"

	"github.com/gin-gonic/gin"
)

// Config holds the server settings.
type Config struct {
	TemplatePath string
	DataDir      string // uploads and results live under here
	Overlays     bool   // write diagnostic overlays next to results
	Analyze      analyze.Config
}

// Server answers upload and history requests.
type Server struct {
	cfg    Config
	tmpl   *template.Template
	store  *history.Store // nil disables run history
	router *gin.Engine
}

// New loads the template and builds the route table. A nil store disables
// run history but keeps uploads working.
func New(cfg Config, store *history.Store) (*Server, error) {
	tmpl, err := template.Load(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.uploadsDir(), cfg.resultsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	s := &Server{cfg: cfg, tmpl: tmpl, store: store}

	router := gin.Default()
	router.POST("/runs", s.handleUpload)
	router.GET("/runs", s.handleHistory)
	router.GET("/download/:name", s.handleDownload)
	s.router = router

	return s, nil
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (c Config) uploadsDir() string { return filepath.Join(c.DataDir, "uploads") }
func (c Config) resultsDir() string { return filepath.Join(c.DataDir, "results") }

// handleUpload accepts multipart page images under the "pages" field,
// analyzes them in upload order and responds with the artifact names.
func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files := form.File["pages"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no pages uploaded"})
		return
	}

	runID := time.Now().Format("20060102_150405")
	runDir := filepath.Join(s.cfg.uploadsDir(), runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	paths := make([]string, 0, len(files))
	for i, file := range files {
		path := filepath.Join(runDir, fmt.Sprintf("page_%d%s", i+1, filepath.Ext(file.Filename)))
		if err := c.SaveUploadedFile(file, path); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		paths = append(paths, path)
	}

	analyzer, err := analyze.New(s.cfg.Analyze, s.tmpl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if s.cfg.Overlays {
		analyzer.SetObserver(overlay.NewRenderer(filepath.Join(s.cfg.resultsDir(), runID+"_overlays")))
	}

	pages, err := analyzer.AnalyzeFiles(paths)
	if err != nil {
		s.recordRun(&history.Run{SourceFile: files[0].Filename, Status: history.StatusFailed})
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	doc := &result.Document{
		TemplateFile: s.cfg.TemplatePath,
		SourceFile:   files[0].Filename,
		Pages:        pages,
	}

	resultName := runID + ".json"
	if err := doc.Save(filepath.Join(s.cfg.resultsDir(), resultName)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	excelName := runID + ".xlsx"
	fused := merge.Merge(s.tmpl, doc)
	if err := export.WriteXLSX(fused, filepath.Join(s.cfg.resultsDir(), excelName)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pageErrors := 0
	for _, page := range pages {
		if page.Error != "" {
			pageErrors++
		}
	}

	s.recordRun(&history.Run{
		SourceFile: files[0].Filename,
		ResultFile: resultName,
		ExcelFile:  excelName,
		Pages:      len(pages),
		PageErrors: pageErrors,
		Status:     history.StatusOK,
	})

	c.JSON(http.StatusOK, gin.H{
		"result":      resultName,
		"excel":       excelName,
		"pages":       len(pages),
		"page_errors": pageErrors,
	})
}

func (s *Server) recordRun(run *history.Run) {
	if s.store == nil {
		return
	}
	if err := s.store.Record(run); err != nil {
		slog.Warn("recording run failed", "error", err)
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, []history.Run{})
		return
	}
	runs, err := s.store.List(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleDownload(c *gin.Context) {
	name := filepath.Base(c.Param("name"))
	path := filepath.Join(s.cfg.resultsDir(), name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such artifact"})
		return
	}
	c.File(path)
}
