package recognition

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/your-org/photovault/internal/config"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.RecognitionConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func TestClientListSubjects(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/recognition/subjects" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{"subjects":["alice","bob"]}`))
	}))

	subjects, err := c.ListSubjects(context.Background())
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(subjects) != 2 || subjects[0] != "alice" {
		t.Fatalf("subjects = %v", subjects)
	}
}

func TestClientListFaces(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("subject"); got != "alice" {
			t.Errorf("subject query = %q", got)
		}
		w.Write([]byte(`{"faces":[{"image_id":"img-1","subject":"alice"}]}`))
	}))

	faces, err := c.ListFaces(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListFaces: %v", err)
	}
	if len(faces) != 1 || faces[0].ImageID != "img-1" {
		t.Fatalf("faces = %v", faces)
	}
}

func TestClientAddFaceUploadsMultipart(t *testing.T) {
	payload := []byte("fake image bytes")
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.URL.Query().Get("subject"); got != "bob" {
			t.Errorf("subject query = %q", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		got, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("read upload: %v", err)
		}
		if string(got) != string(payload) {
			t.Error("uploaded bytes do not match")
		}
		w.Write([]byte(`{"image_id":"img-9"}`))
	}))

	id, err := c.AddFace(context.Background(), "bob", payload)
	if err != nil {
		t.Fatalf("AddFace: %v", err)
	}
	if id != "img-9" {
		t.Fatalf("image id = %q", id)
	}
}

func TestClientRecognizeParsesRankedCandidates(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/recognition/recognize" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"result":[{"subjects":[
			{"subject":"alice","similarity":0.97},
			{"subject":"bob","similarity":0.41}
		]}]}`))
	}))

	candidates, err := c.Recognize(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %v", candidates)
	}
	if candidates[0].Subject != "alice" || candidates[0].Similarity != 0.97 {
		t.Fatalf("first candidate = %+v", candidates[0])
	}
}

func TestClientRecognizeEmptyResult(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[]}`))
	}))

	candidates, err := c.Recognize(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("candidates = %v, want none", candidates)
	}
}

func TestClientDetectParsesBoxes(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/detection/detect" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"result":[
			{"box":{"x_min":10,"y_min":20,"x_max":110,"y_max":140,"probability":0.93}},
			{"box":{"x_min":200,"y_min":30,"x_max":260,"y_max":100,"probability":0.88}}
		]}`))
	}))

	detections, err := c.Detect(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(detections) != 2 {
		t.Fatalf("detections = %v", detections)
	}
	if detections[0].Box != [4]int{10, 20, 110, 140} {
		t.Fatalf("box = %v", detections[0].Box)
	}
	if detections[0].Confidence != 0.93 {
		t.Fatalf("confidence = %v", detections[0].Confidence)
	}
}

func TestClientErrorStatusSurfacesBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "subject not found", http.StatusNotFound)
	}))

	_, err := c.ListFaces(context.Background(), "nobody")
	if err == nil {
		t.Fatal("want error on 404")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "subject not found") {
		t.Fatalf("error = %v, want status and body", err)
	}
}
