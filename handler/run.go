package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/middleware"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pipeline"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/service"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps task exports and registry uploads.
const maxUploadBytes = 32 << 20

var uploadExtensions = map[string]bool{".csv": true, ".xlsx": true, ".xlsm": true}

type RunHandler struct {
	runner *service.Runner
	store  *service.RunStore
	now    func() time.Time
}

func NewRunHandler(runner *service.Runner, store *service.RunStore) *RunHandler {
	return &RunHandler{runner: runner, store: store, now: time.Now}
}

// IssueSummary is one line of the per-label overview shown after a run.
type IssueSummary struct {
	Label   model.Label `json:"label"`
	Count   int         `json:"count"`
	Message string      `json:"message"`
}

func issueSummary(issues []model.Issue) []IssueSummary {
	counts := pipeline.CountByLabel(issues)
	out := make([]IssueSummary, 0, len(counts))
	for _, lc := range counts {
		noun := "tasks"
		if lc.Count == 1 {
			noun = "task"
		}
		out = append(out, IssueSummary{
			Label:   lc.Label,
			Count:   lc.Count,
			Message: fmt.Sprintf("There are %d %s with %s", lc.Count, noun, lc.Label),
		})
	}
	return out
}

// uploadError is a client-facing upload problem.
type uploadError string

func (e uploadError) Error() string { return string(e) }

const (
	errNoFile         uploadError = "No file provided"
	errFileType       uploadError = "Only CSV and Excel files are allowed"
	errFileTooLarge   uploadError = "File too large"
	errFileUnreadable uploadError = "Failed to read file"
)

func readUpload(c *gin.Context) (string, []byte, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return "", nil, errNoFile
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadExtensions[ext] {
		return "", nil, errFileType
	}
	if header.Size > maxUploadBytes {
		return "", nil, errFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return "", nil, errFileUnreadable
	}
	if len(data) > maxUploadBytes {
		return "", nil, errFileTooLarge
	}
	return filepath.Base(header.Filename), data, nil
}

// errorStatus maps run errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrRunNotFound), errors.Is(err, service.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownArtifact), errors.Is(err, pipeline.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRunNotCompleted):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrMissingColumn),
		errors.Is(err, pipeline.ErrInvalidDate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrReferencesInvalid):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// runResponse is a run with its per-label issue overview.
func runResponse(run *model.Run) gin.H {
	resp := gin.H{
		"run":           run,
		"issue_summary": issueSummary(run.Issues),
	}
	if run.Status == model.StatusCompleted && len(run.Issues) == 0 {
		resp["message"] = "There are no issues for this date range"
	}
	return resp
}

// Create audits an uploaded task export for the start..end window.
func (h *RunHandler) Create(c *gin.Context) {
	window, err := pipeline.ParseWindow(c.PostForm("start"), c.PostForm("end"), h.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filename, data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.runner.Audit(c.Request.Context(), middleware.GetUsername(c), filename, data, window)
	if err != nil {
		c.Error(err)
		resp := gin.H{"error": err.Error()}
		if run != nil {
			resp["id"] = run.ID
		}
		c.JSON(errorStatus(err), resp)
		return
	}

	c.JSON(http.StatusCreated, runResponse(run))
}

// List returns the operator's runs, newest first.
func (h *RunHandler) List(c *gin.Context) {
	runs := h.store.GetByOwner(middleware.GetUsername(c))
	if runs == nil {
		runs = []*model.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// ownRun loads a run and hides other operators' runs.
func (h *RunHandler) ownRun(c *gin.Context) (*model.Run, bool) {
	run, err := h.store.Get(c.Param("id"))
	if err != nil || run.Owner != middleware.GetUsername(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return nil, false
	}
	return run, true
}

func (h *RunHandler) Get(c *gin.Context) {
	run, ok := h.ownRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, runResponse(run))
}

// Issues lists a run's issue rows, optionally only those with ?label=.
func (h *RunHandler) Issues(c *gin.Context) {
	run, ok := h.ownRun(c)
	if !ok {
		return
	}

	issues := run.Issues
	if label := c.Query("label"); label != "" {
		issues = make([]model.Issue, 0)
		for _, is := range run.Issues {
			if string(is.Label) == label {
				issues = append(issues, is)
			}
		}
	}
	if issues == nil {
		issues = []model.Issue{}
	}

	c.JSON(http.StatusOK, gin.H{
		"issues": issues,
		"total":  len(issues),
	})
}

// Artifact redirects to a presigned download link.
func (h *RunHandler) Artifact(c *gin.Context) {
	run, ok := h.ownRun(c)
	if !ok {
		return
	}

	link, err := h.runner.ArtifactURL(c.Request.Context(), run, c.Param("kind"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, link)
}

// Accounting builds the accounting feed from an uploaded reservation registry.
func (h *RunHandler) Accounting(c *gin.Context) {
	run, ok := h.ownRun(c)
	if !ok {
		return
	}

	filename, data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines, err := h.runner.Accounting(c.Request.Context(), run.ID, filename, data)
	if err != nil {
		c.Error(err)
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	unmatched := 0
	for _, l := range lines {
		if l.Category == model.NeedValue {
			unmatched++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"lines":     len(lines),
		"unmatched": unmatched,
		"artifact":  model.ArtifactAccounting,
	})
}

func (h *RunHandler) Delete(c *gin.Context) {
	run, ok := h.ownRun(c)
	if !ok {
		return
	}

	if err := h.runner.Delete(c.Request.Context(), run.ID); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Run deleted"})
}
