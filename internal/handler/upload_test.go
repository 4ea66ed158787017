package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"clix/internal/model"
	"clix/internal/upload"
)

func newUploadRouter(m *upload.Manager) chi.Router {
	h := NewUploadHandler(m)
	r := chi.NewRouter()
	r.Post("/uploads", h.Create)
	r.Get("/uploads/{id}", h.Get)
	r.Post("/uploads/{id}/retry", h.Retry)
	r.Delete("/uploads/{id}", h.Delete)
	return r
}

// multipartBody builds a multipart request with one "media" part carrying an
// explicit content type.
func multipartBody(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="media"; filename="asset"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestUploadHandler_Create_AcceptedAsset(t *testing.T) {
	r := newUploadRouter(newUploadManager())

	body, contentType := multipartBody(t, model.ContentTypeJPEG, []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var snap upload.Snapshot
	json.Unmarshal(rec.Body.Bytes(), &snap)
	if snap.ID == "" {
		t.Error("expected a session id")
	}
	if snap.Status != upload.StatusUploading {
		t.Errorf("status = %s, want %s right after acceptance", snap.Status, upload.StatusUploading)
	}
	if snap.PreviewURL == "" {
		t.Error("preview must be available immediately")
	}
}

// Through a real server the request context is cancelled the moment Create
// returns, so the transfer must keep running on its own and reach a terminal
// state for later GET polls.
func TestUploadHandler_Create_TransferFinishesAfterRequestReturns(t *testing.T) {
	m := upload.NewManager(5*time.Millisecond, upload.NeverFail{}, nullPreviewer{}, nil)
	srv := httptest.NewServer(newUploadRouter(m))
	defer srv.Close()

	body, contentType := multipartBody(t, model.ContentTypeJPEG, []byte("jpeg-bytes"))
	resp, err := http.Post(srv.URL+"/uploads", contentType, body)
	if err != nil {
		t.Fatalf("POST /uploads: %v", err)
	}
	var created upload.Snapshot
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/uploads/" + created.ID)
		if err != nil {
			t.Fatalf("GET session: %v", err)
		}
		var snap upload.Snapshot
		json.NewDecoder(resp.Body).Decode(&snap)
		resp.Body.Close()

		if snap.Status == upload.StatusSuccess && snap.Progress == 100 {
			return
		}
		if snap.Status == upload.StatusError {
			t.Fatalf("transfer failed: %q", snap.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("transfer never completed after the request ended: status=%s progress=%d", snap.Status, snap.Progress)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUploadHandler_Create_RejectedType(t *testing.T) {
	r := newUploadRouter(newUploadManager())

	body, contentType := multipartBody(t, "application/pdf", []byte("%PDF-"))
	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error.Code != model.CodeInvalidMediaType {
		t.Errorf("error code = %q, want %q", resp.Error.Code, model.CodeInvalidMediaType)
	}
}

func TestUploadHandler_Create_MissingFile(t *testing.T) {
	r := newUploadRouter(newUploadManager())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("something_else", "x")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/uploads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadHandler_Get(t *testing.T) {
	m := newUploadManager()
	r := newUploadRouter(m)

	s, err := m.Create(context.Background(), model.ContentTypePNG, 512, []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/"+s.ID(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for unknown session = %d, want 404", rec.Code)
	}
}

func TestUploadHandler_Retry(t *testing.T) {
	m := upload.NewManager(time.Millisecond, upload.AlwaysFail{}, nullPreviewer{}, nil)
	r := newUploadRouter(m)

	s, err := m.Create(context.Background(), model.ContentTypeJPEG, 512, []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Wait for the guaranteed interruption.
	deadline := time.Now().Add(5 * time.Second)
	for s.Snapshot().Status != upload.StatusError {
		if time.Now().After(deadline) {
			t.Fatal("transfer never failed")
		}
		time.Sleep(time.Millisecond)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/uploads/"+s.ID()+"/retry", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/uploads/ghost/retry", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for unknown session = %d, want 404", rec.Code)
	}
}

func TestUploadHandler_Retry_NotRetryable(t *testing.T) {
	m := upload.NewManager(time.Hour, upload.NeverFail{}, nullPreviewer{}, nil)
	r := newUploadRouter(m)

	s, err := m.Create(context.Background(), model.ContentTypeJPEG, 512, []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Reset()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/uploads/"+s.ID()+"/retry", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 while uploading", rec.Code)
	}
}

func TestUploadHandler_Delete(t *testing.T) {
	m := newUploadManager()
	r := newUploadRouter(m)

	s, err := m.Create(context.Background(), model.ContentTypeJPEG, 512, []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/uploads/"+s.ID(), nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, ok := m.Get(s.ID()); ok {
		t.Error("session still present after delete")
	}
}
