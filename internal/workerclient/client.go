package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/five82/grav1go/internal/config"
	cerrors "github.com/five82/grav1go/internal/errors"
)

// metadataTimeout bounds connection establishment and the wait for
// response headers on every coordinator call (spec §5). It never
// bounds body streaming, so a multi-gigabyte segment download or
// encoded-scene upload is not cut off mid-transfer the way a plain
// http.Client.Timeout would cut it off.
const metadataTimeout = 3 * time.Second

// Client is a thin HTTP client over one coordinator's endpoints
// (spec §4.6). clientID disambiguates concurrent workers sharing a
// host; it rides as the get_job ?port= query param the coordinator
// folds into its dispatch-time worker identity.
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
}

// NewClient builds a Client against a coordinator base URL such as
// "http://coordinator.local:8080".
func NewClient(baseURL, clientID string) *Client {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: metadataTimeout}).DialContext,
		ResponseHeaderTimeout: metadataTimeout,
	}
	return &Client{baseURL: baseURL, clientID: clientID, http: &http.Client{Transport: transport}}
}

type heldEntry struct {
	ProjectID string `json:"projectid"`
	Scene     string `json:"scene"`
}

// FetchJob polls get_job with the caller's held set, streaming a hit's
// body into destDir. Returns ok=false on a 404 (no work available).
func (c *Client) FetchJob(ctx context.Context, held []SceneRef, destDir string) (*Job, bool, error) {
	entries := make([]heldEntry, 0, len(held))
	for _, h := range held {
		entries = append(entries, heldEntry{ProjectID: h.ProjectID, Scene: h.Scene})
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, false, cerrors.Wrap(cerrors.KindJSONParse, "marshal held list", err)
	}

	reqURL := fmt.Sprintf("%s/api/get_job/%s?port=%s", c.baseURL, url.PathEscape(string(raw)), url.QueryEscape(c.clientID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, cerrors.Wrap(cerrors.KindCommand, "build get_job request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, cerrors.Wrap(cerrors.KindIO, "get_job request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, cerrors.New(cerrors.KindIO, fmt.Sprintf("get_job: unexpected status %d", resp.StatusCode))
	}

	job := &Job{
		ProjectID:     resp.Header.Get("projectid"),
		Scene:         resp.Header.Get("scene"),
		Filename:      resp.Header.Get("filename"),
		Encoder:       config.EncoderKind(resp.Header.Get("encoder")),
		EncoderParams: resp.Header.Get("encoder_params"),
		FFmpegParams:  resp.Header.Get("ffmpeg_params"),
		Version:       resp.Header.Get("version"),
		Grain:         resp.Header.Get("grain") == "true",
	}
	job.Start, _ = strconv.Atoi(resp.Header.Get("start"))
	job.Frames, _ = strconv.Atoi(resp.Header.Get("frames"))

	destPath := filepath.Join(destDir, job.ProjectID+"_"+job.Scene+".mkv")
	if err := streamToFile(destPath, resp.Body); err != nil {
		return nil, false, err
	}
	job.SegmentPath = destPath

	return job, true, nil
}

func streamToFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return cerrors.Wrap(cerrors.KindIO, "create segment download dir", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return cerrors.Wrap(cerrors.KindIO, "create segment download file", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(f, r); err != nil {
		return cerrors.Wrap(cerrors.KindIO, "write segment download", err)
	}
	return nil
}

// CancelJob releases a held scene back to the dispatch pool (spec
// §4.6's cancel_job).
func (c *Client) CancelJob(ctx context.Context, client, projectID, scene string) error {
	form := url.Values{"client": {client}, "projectid": {projectID}, "scene": {scene}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cancel_job", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return cerrors.Wrap(cerrors.KindCommand, "build cancel_job request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return cerrors.Wrap(cerrors.KindIO, "cancel_job request", err)
	}
	defer func() { _ = resp.Body.Close() }()
	return nil
}

// FetchGrainTable downloads the per-scene film-grain table the
// coordinator extracted during planning (spec §4.3's /api/get_grain
// route), streaming it to destPath for the encoder's second pass.
func (c *Client) FetchGrainTable(ctx context.Context, projectID, scene, destPath string) error {
	reqURL := fmt.Sprintf("%s/api/get_grain/%s/%s", c.baseURL, url.PathEscape(projectID), url.PathEscape(scene))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return cerrors.Wrap(cerrors.KindCommand, "build get_grain request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return cerrors.Wrap(cerrors.KindIO, "get_grain request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return cerrors.New(cerrors.KindNotFound, fmt.Sprintf("no grain table for %s/%s", projectID, scene))
	}
	if resp.StatusCode != http.StatusOK {
		return cerrors.New(cerrors.KindIO, fmt.Sprintf("get_grain: unexpected status %d", resp.StatusCode))
	}

	return streamToFile(destPath, resp.Body)
}

// FinishRequest carries a finish_job call's form fields.
type FinishRequest struct {
	Client        string
	Encoder       config.EncoderKind
	Version       string
	EncoderParams string
	FFmpegParams  string
	ProjectID     string
	Scene         string
	Grain         bool
}

// FinishJob uploads an encoded scene and returns the coordinator's
// reason string verbatim (spec §4.4/§7); callers decide how to react
// (retry, log, or treat as success).
func (c *Client) FinishJob(ctx context.Context, req FinishRequest, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindIO, "open encoded scene for upload", err)
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"client":         req.Client,
		"encoder":        string(req.Encoder),
		"version":        req.Version,
		"encoder_params": req.EncoderParams,
		"ffmpeg_params":  req.FFmpegParams,
		"projectid":      req.ProjectID,
		"scene":          req.Scene,
		"grain":          strconv.FormatBool(req.Grain),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", cerrors.Wrap(cerrors.KindIO, "write finish_job field", err)
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindIO, "create finish_job form file", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return "", cerrors.Wrap(cerrors.KindIO, "copy encoded scene into upload", err)
	}
	if err := mw.Close(); err != nil {
		return "", cerrors.Wrap(cerrors.KindIO, "close finish_job multipart writer", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/finish_job", &body)
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindCommand, "build finish_job request", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindIO, "finish_job request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	reason, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindIO, "read finish_job response", err)
	}
	return string(reason), nil
}
