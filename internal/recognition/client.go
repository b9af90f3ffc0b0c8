// Package recognition talks to the remote face-recognition service and
// routes its answers into assignments.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/your-org/photovault/internal/config"
	"github.com/your-org/photovault/internal/observability"
)

// Candidate is one ranked match returned by the recognize call. The
// service returns candidates best-first; equal similarities keep the
// service's order.
type Candidate struct {
	Subject    string  `json:"subject"`
	Similarity float64 `json:"similarity"`
}

// Detection is one face found by the detect call.
type Detection struct {
	Box        [4]int  `json:"box"` // x1, y1, x2, y2
	Confidence float64 `json:"confidence"`
}

// SubjectFace is one training sample stored remotely for a subject.
type SubjectFace struct {
	ImageID string `json:"image_id"`
	Subject string `json:"subject"`
}

// Client is the HTTP client for the remote recognition service. The
// service is treated as an unreliable, rate-limited dependency: every call
// can fail and callers absorb failures at the smallest possible scope.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.RecognitionConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// ListSubjects returns all subject ids known to the remote store.
func (c *Client) ListSubjects(ctx context.Context) ([]string, error) {
	var out struct {
		Subjects []string `json:"subjects"`
	}
	if err := c.getJSON(ctx, "/api/v1/recognition/subjects", nil, &out); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return out.Subjects, nil
}

// ListFaces returns the training samples stored for one subject.
func (c *Client) ListFaces(ctx context.Context, subject string) ([]SubjectFace, error) {
	var out struct {
		Faces []SubjectFace `json:"faces"`
	}
	q := url.Values{"subject": {subject}}
	if err := c.getJSON(ctx, "/api/v1/recognition/faces", q, &out); err != nil {
		return nil, fmt.Errorf("list faces for %s: %w", subject, err)
	}
	return out.Faces, nil
}

// AddFace uploads an image as a training sample for the subject and
// returns the remote image id.
func (c *Client) AddFace(ctx context.Context, subject string, image []byte) (string, error) {
	q := url.Values{"subject": {subject}}
	var out struct {
		ImageID string `json:"image_id"`
	}
	if err := c.postImage(ctx, "/api/v1/recognition/faces", q, image, &out); err != nil {
		return "", fmt.Errorf("add face for %s: %w", subject, err)
	}
	return out.ImageID, nil
}

// Recognize matches a single face image against all subjects and returns
// ranked subject/similarity pairs.
func (c *Client) Recognize(ctx context.Context, image []byte) ([]Candidate, error) {
	start := time.Now()
	defer func() {
		observability.RecognitionDuration.Observe(time.Since(start).Seconds())
	}()

	var out struct {
		Result []struct {
			Subjects []Candidate `json:"subjects"`
		} `json:"result"`
	}
	if err := c.postImage(ctx, "/api/v1/recognition/recognize", nil, image, &out); err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	if len(out.Result) == 0 {
		return nil, nil
	}
	return out.Result[0].Subjects, nil
}

// Detect finds faces in an image without matching them.
func (c *Client) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	var out struct {
		Result []struct {
			Box struct {
				XMin        int     `json:"x_min"`
				YMin        int     `json:"y_min"`
				XMax        int     `json:"x_max"`
				YMax        int     `json:"y_max"`
				Probability float64 `json:"probability"`
			} `json:"box"`
		} `json:"result"`
	}
	if err := c.postImage(ctx, "/api/v1/detection/detect", nil, image, &out); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	detections := make([]Detection, 0, len(out.Result))
	for _, r := range out.Result {
		detections = append(detections, Detection{
			Box:        [4]int{r.Box.XMin, r.Box.YMin, r.Box.XMax, r.Box.YMax},
			Confidence: r.Box.Probability,
		})
	}
	return detections, nil
}

// Ping checks service reachability.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListSubjects(ctx)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postImage(ctx context.Context, path string, query url.Values, image []byte, out interface{}) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "face.jpg")
	if err != nil {
		return err
	}
	if _, err := fw.Write(image); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("remote service returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
