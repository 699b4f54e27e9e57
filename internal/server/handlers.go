package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/async"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
	"github.com/joseph-ayodele/vacation-distri/internal/repository"
)

func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      serviceName,
		"version":   serviceVersion,
		"status":    "running",
		"timestamp": a.now(),
		"endpoints": []string{
			"GET /health",
			"GET /status",
			"POST /upload",
			"GET /task/{id}/status",
			"GET /task/{id}/result",
			"GET /task/{id}/summary",
			"GET /task/{id}/export.xlsx",
			"GET /tasks",
			"DELETE /task/{id}",
			"POST /reset-stats",
		},
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := a.cfg.Status.ServiceStatus(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": a.now(),
		"components": map[string]bool{
			"extractor":    st.Extractor.Available,
			"anonymizer":   st.Anonymizer.Available,
			"restructurer": st.Restructurer.Available,
		},
	})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg.Status.ServiceStatus(r.Context()))
}

func (a *API) handleResetStats(w http.ResponseWriter, _ *http.Request) {
	a.cfg.Status.ResetStats()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Processing statistics reset successfully"})
}

func formBool(r *http.Request, key string) (bool, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, common.InvalidInputf("%s must be a boolean", key)
	}
	return b, nil
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		a.writeError(w, r, common.InvalidInputf("invalid multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.writeError(w, r, common.InvalidInputf("file is required"))
		return
	}
	defer func() { _ = file.Close() }()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		a.writeError(w, r, common.InvalidInputf("no filename provided"))
		return
	}
	if _, ok := constants.FormatForPath(name); !ok {
		a.writeError(w, r, common.InvalidInputf("unsupported file type, supported: %s",
			strings.Join(constants.SupportedExtensions(), ", ")))
		return
	}
	opts := pipeline.Options{Password: r.FormValue("password")}
	if opts.Anonymize, err = formBool(r, "anonymize"); err != nil {
		a.writeError(w, r, err)
		return
	}
	if opts.Restructure, err = formBool(r, "restructure"); err != nil {
		a.writeError(w, r, err)
		return
	}

	dir, path, err := a.saveUpload(file, name)
	if err != nil {
		a.writeError(w, r, fmt.Errorf("store upload: %w", err))
		return
	}
	task, err := a.cfg.Tasks.Create(r.Context(), name)
	if err != nil {
		_ = os.RemoveAll(dir)
		a.writeError(w, r, err)
		return
	}
	job := async.Job{TaskID: task.ID, FilePath: path, Options: opts, CleanupDir: dir}
	if err := a.cfg.Queue.Enqueue(r.Context(), job); err != nil {
		_ = os.RemoveAll(dir)
		_ = a.cfg.Tasks.Fail(r.Context(), task.ID, "could not queue task: "+err.Error())
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": task.ID,
		"status":  string(task.Status),
		"message": "File uploaded successfully, processing queued",
	})
}

func (a *API) saveUpload(src io.Reader, name string) (string, string, error) {
	base := a.cfg.UploadDir
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", "", err
		}
	}
	dir, err := os.MkdirTemp(base, "upload-*")
	if err != nil {
		return "", "", err
	}
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.RemoveAll(dir)
		return "", "", err
	}
	if err := out.Close(); err != nil {
		_ = os.RemoveAll(dir)
		return "", "", err
	}
	return dir, path, nil
}

func (a *API) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := a.cfg.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	res, err := a.cfg.Tasks.GetResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleTaskSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := a.cfg.Tasks.GetResult(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": id,
		"summary": res.Summary(),
	})
}

func (a *API) handleTaskExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := a.cfg.Tasks.GetResult(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if res.RestructuredData == nil {
		a.writeError(w, r, common.InvalidInputf("task %s has no restructured data", id))
		return
	}
	xlsx, err := a.cfg.Exporter.AbsenceWorkbook(res.RestructuredData)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="absences_%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

func (a *API) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.writeError(w, r, common.InvalidInputf("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	tasks, err := a.cfg.Tasks.List(r.Context(), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*repository.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "total": len(tasks)})
}

func (a *API) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.cfg.Tasks.Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Task %s deleted successfully", id)})
}
