package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// --------- File HTTP handlers ---------

type createFileRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// isClientFileError classifies persist failures that are the caller's
// fault: missing fields and language resolution failures.
func isClientFileError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "Language") ||
		strings.Contains(msg, "Unable to determine language") ||
		strings.Contains(msg, "is required")
}

func (s *APIServer) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.files.ListFiles(r.Context(), requestUserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *APIServer) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	doc, err := s.files.GetFile(r.Context(), requestUserID(r), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *APIServer) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	doc, err := s.files.PersistFile(r.Context(), requestUserID(r), req.Filename, req.Language, req.Content, "manual")
	if err != nil {
		if isClientFileError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// handleUploadFile accepts a multipart upload (field "file", optional
// "language") capped at the configured byte limit.
func (s *APIServer) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.UploadMaxBytes)
	if err := r.ParseMultipartForm(s.config.UploadMaxBytes); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusBadRequest, "Uploaded file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Uploaded file is too large")
		return
	}

	log.Printf("📤 [FILES] Upload %s (%d bytes) from user %s", header.Filename, len(content), requestUserID(r))

	doc, err := s.files.PersistFile(r.Context(), requestUserID(r), header.Filename, r.FormValue("language"), string(content), "upload")
	if err != nil {
		if isClientFileError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}
