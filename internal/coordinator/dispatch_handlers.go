package coordinator

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/registry"
)

type heldEntry struct {
	ProjectID string `json:"projectid"`
	Scene     string `json:"scene"`
}

// handleGetJob implements GET /api/get_job/<json-held-list> (spec §4.6):
// 404 on an empty dispatch, otherwise the segment body with job metadata
// riding in response headers.
func (s *Server) handleGetJob(c *gin.Context) {
	raw, err := url.PathUnescape(c.Param("held"))
	if err != nil {
		c.String(http.StatusBadRequest, "bad held list")
		return
	}
	var entries []heldEntry
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			c.String(http.StatusBadRequest, "bad held list")
			return
		}
	}
	held := make([]registry.SceneRef, 0, len(entries))
	for _, e := range entries {
		held = append(held, registry.SceneRef{ProjectID: e.ProjectID, Scene: e.Scene})
	}

	assignment, ok := s.reg.GetJob(held, workerID(c))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	job := assignment.Job
	c.Header("projectid", assignment.ProjectID)
	c.Header("filename", job.SceneKey+".ivf")
	c.Header("scene", assignment.SceneID)
	c.Header("id", assignment.SceneID)
	c.Header("encoder", string(job.Encoder))
	c.Header("encoder_params", job.EncoderParams)
	c.Header("ffmpeg_params", job.FFmpegParams)
	c.Header("version", assignment.Version)
	c.Header("start", strconv.Itoa(job.Start))
	c.Header("frames", strconv.Itoa(job.Frames))
	c.Header("grain", strconv.FormatBool(job.Grain))

	c.File(assignment.SegmentPath)
}

// handleGetGrain implements GET /api/get_grain/<pid>/<scene>: serves
// the scene's film-grain table extracted during splitting, 404 if the
// project or the table file doesn't exist (spec §4.3).
func (s *Server) handleGetGrain(c *gin.Context) {
	p, ok := s.reg.Project(c.Param("pid"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	path := p.GrainTablePath(c.Param("scene"))
	if _, err := os.Stat(path); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(path)
}

// handleCancelJob implements POST /cancel_job: form fields client,
// projectid, scene. Removes the caller from the job's workers set.
func (s *Server) handleCancelJob(c *gin.Context) {
	client := c.PostForm("client")
	pid := c.PostForm("projectid")
	scene := c.PostForm("scene")

	if err := s.reg.Cancel(pid, scene, client); err != nil {
		c.String(http.StatusNotFound, err.Error())
		return
	}
	c.Status(http.StatusOK)
}

// handleFinishJob implements POST /finish_job: form fields client,
// encoder, version, encoder_params, ffmpeg_params, projectid, scene,
// grain plus multipart file. Always 200; the reason string is the body.
func (s *Server) handleFinishJob(c *gin.Context) {
	req := registry.FinishRequest{
		Client:        c.PostForm("client"),
		Encoder:       config.EncoderKind(c.PostForm("encoder")),
		Version:       c.PostForm("version"),
		EncoderParams: c.PostForm("encoder_params"),
		FFmpegParams:  c.PostForm("ffmpeg_params"),
		ProjectID:     c.PostForm("projectid"),
		Scene:         c.PostForm("scene"),
		Grain:         c.PostForm("grain") == "true",
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusOK, registry.ReasonBadUpload)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.String(http.StatusOK, registry.ReasonBadUpload)
		return
	}
	defer func() { _ = file.Close() }()

	reason := s.reg.Finish(c.Request.Context(), req, file)
	c.String(http.StatusOK, reason)
}

// handleGetScene serves an encoded scene's bytes directly, used by
// workers re-fetching a completed scene and by operators inspecting
// output (spec §4.6).
func (s *Server) handleGetScene(c *gin.Context) {
	p, ok := s.reg.Project(c.Param("pid"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	scene, ok := p.Scenes[c.Param("scene")]
	if !ok || scene.Filesize == 0 {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(p.ScenePath(c.Param("scene")))
}

// handleGetCompleted serves a finished project's concatenated output.
func (s *Server) handleGetCompleted(c *gin.Context) {
	p, ok := s.reg.Project(c.Param("pid"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(p.CompletedPath())
}
