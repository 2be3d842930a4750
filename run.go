package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// errFileSave signals that the save-file step already wrote the 400
// response; the pipeline aborts without recording history.
var errFileSave = errors.New("file save failed")

// --------- Run orchestrator ---------

// RunRequest is the loosely-specified client request for one execution:
// an optional language token (aliases accepted), the source code, an
// optional stdin, and an optional instruction to save the source as a
// user file.
type RunRequest struct {
	Language string           `json:"language"`
	Code     string           `json:"code"`
	Stdin    string           `json:"stdin"`
	SaveFile *SaveFileRequest `json:"saveFile,omitempty"`
}

type SaveFileRequest struct {
	Filename string `json:"filename"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content,omitempty"`
}

type RunResponse struct {
	Run       map[string]interface{} `json:"run"`
	SavedFile *StoredFile            `json:"savedFile"`
}

// handleRun is the single externally visible execute operation. The
// steps run strictly in order: resolve runtime, execute, optionally save
// the file, record history, respond. Each step's failure mode decides
// whether history is written:
//   - unresolvable language: 400, no engine call, no history
//   - engine failure: 500, history records the failure with the raw
//     upstream body
//   - file-save failure: 400, the successful execution is not recorded
//     (matches the upstream service this replaces; see DESIGN.md)
func (s *APIServer) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	userID := requestUserID(r)
	preview := req.Code
	if len(preview) > 50 {
		preview = preview[:50]
	}
	log.Printf("📥 [RUN] Received run request: language=%q code=%q stdin=%q", req.Language, preview, req.Stdin)

	// Resolve the runtime before any network call.
	runtime, err := resolveRuntime(req.Language)
	if err != nil {
		log.Printf("❌ [RUN] %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.piston.Execute(r.Context(), runtime, req.Code, req.Stdin)
	if err != nil {
		s.respondRunFailure(w, r, &req, err)
		return
	}

	var savedFile *StoredFile
	if req.SaveFile != nil && req.SaveFile.Filename != "" {
		savedFile, err = s.saveRunFile(w, r, &req, userID)
		if err != nil {
			return // response already written
		}
	}

	language := req.Language
	if language == "" {
		language = runtime.Language
	}
	entry := &HistoryEntry{
		UserID:   userID,
		Action:   ActionRun,
		Language: language,
		Code:     req.Code,
		Input:    req.Stdin,
		Output:   result.Output(),
		Meta:     result.Raw,
	}
	if err := s.recordHistory(r.Context(), entry); err != nil {
		log.Printf("❌ [RUN] Failed to record history: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, RunResponse{Run: result.Raw, SavedFile: savedFile})
}

// saveRunFile persists the just-executed source under the requested
// filename. On any failure it writes the 400 response itself and returns
// a non-nil error so the caller aborts without recording history.
func (s *APIServer) saveRunFile(w http.ResponseWriter, r *http.Request, req *RunRequest, userID string) (*StoredFile, error) {
	content := req.SaveFile.Content
	if content == "" {
		content = req.Code
	}
	if content == "" {
		log.Printf("❌ [RUN] File save error: No file content provided to store")
		writeError(w, http.StatusBadRequest, "File save failed: No file content provided to store")
		return nil, errFileSave
	}

	language := req.SaveFile.Language
	if language == "" {
		language = req.Language
	}

	savedFile, err := s.files.PersistFile(r.Context(), userID, req.SaveFile.Filename, language, content, "generated")
	if err != nil {
		log.Printf("❌ [RUN] File save error: %v", err)
		writeError(w, http.StatusBadRequest, "File save failed: "+err.Error())
		return nil, errFileSave
	}
	return savedFile, nil
}

// respondRunFailure records the failed execution and answers with both
// the generic message and the upstream diagnostic detail.
func (s *APIServer) respondRunFailure(w http.ResponseWriter, r *http.Request, req *RunRequest, err error) {
	log.Printf("❌ [RUN] Run error: %v", err)

	var upstream map[string]interface{}
	if engineErr, ok := err.(*EngineError); ok && engineErr.Upstream != nil {
		upstream = engineErr.Upstream
		if detail, jsonErr := json.Marshal(upstream); jsonErr == nil {
			log.Printf("❌ [RUN] Engine upstream error: %s", detail)
		}
	}

	meta := upstream
	if meta == nil {
		meta = map[string]interface{}{"message": err.Error()}
	}

	entry := &HistoryEntry{
		UserID:   requestUserID(r),
		Action:   ActionRun,
		Language: req.Language,
		Code:     req.Code,
		Input:    req.Stdin,
		Error:    err.Error(),
		Meta:     meta,
	}
	if recordErr := s.recordHistory(r.Context(), entry); recordErr != nil {
		log.Printf("❌ [RUN] Failed to record failure history: %v", recordErr)
	}

	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"error":    "Execution failed",
		"details":  err.Error(),
		"upstream": upstream,
	})
}
