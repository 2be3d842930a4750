package main

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateFileRoute(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	_, token := newTestUser(t, s)

	rec := doJSON(t, s, "POST", "/api/files", token, map[string]string{
		"filename": "main.go",
		"content":  "package main",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var doc StoredFile
	decodeBody(t, rec, &doc)
	if doc.Language != "go" || doc.Origin != "manual" {
		t.Fatalf("unexpected record: %+v", doc)
	}

	// Fetch it back by id through the router.
	rec = doJSON(t, s, "GET", "/api/files/"+doc.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", rec.Code, rec.Body.String())
	}
	var fetched StoredFile
	decodeBody(t, rec, &fetched)
	if fetched.Content != "package main" {
		t.Fatalf("content = %q", fetched.Content)
	}

	// Missing filename.
	rec = doJSON(t, s, "POST", "/api/files", token, map[string]string{
		"content": "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing filename status=%d", rec.Code)
	}

	// Unresolvable language.
	rec = doJSON(t, s, "POST", "/api/files", token, map[string]string{
		"filename": "notes.txt",
		"content":  "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad extension status=%d", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if !strings.Contains(resp["error"], "Unable to determine language") {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestUploadFileRoute(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	_, token := newTestUser(t, s)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "upload.py")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte("print('uploaded')"))
	writer.Close()

	req := httptest.NewRequest("POST", "/api/files/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var doc StoredFile
	decodeBody(t, rec, &doc)
	if doc.Filename != "upload.py" || doc.Language != "python" || doc.Origin != "upload" {
		t.Fatalf("unexpected record: %+v", doc)
	}

	// No file field.
	var empty bytes.Buffer
	writer = multipart.NewWriter(&empty)
	writer.WriteField("language", "python")
	writer.Close()

	req = httptest.NewRequest("POST", "/api/files/upload", &empty)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestUploadFileTooLarge(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	_, token := newTestUser(t, s)
	s.config.UploadMaxBytes = 64

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", "big.py")
	part.Write(bytes.Repeat([]byte("a"), 4096))
	writer.Close()

	req := httptest.NewRequest("POST", "/api/files/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}
