package coordinator

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/registry"
)

type addProjectBody struct {
	Password      string   `json:"password"`
	ID            string   `json:"id"`
	InputPaths    []string `json:"input_paths"`
	OutputPath    string   `json:"output_path"`
	Encoder       string   `json:"encoder"`
	EncoderParams string   `json:"encoder_params"`
	FFmpegParams  string   `json:"ffmpeg_params"`
	MinFrames     int      `json:"min_frames"`
	MaxFrames     int      `json:"max_frames"`
	Priority      int      `json:"priority"`
	OnComplete    string   `json:"on_complete"`
}

// handleAddProject implements POST /api/add_project (spec §4.6):
// password-gated, registers one project per input path.
func (s *Server) handleAddProject(c *gin.Context) {
	var body addProjectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if !s.checkPassword(body.Password) {
		c.Status(http.StatusForbidden)
		return
	}

	ids, err := s.reg.AddProject(registry.AddProjectRequest{
		ID:            body.ID,
		InputPaths:    body.InputPaths,
		OutputPath:    body.OutputPath,
		Encoder:       config.EncoderKind(body.Encoder),
		EncoderParams: body.EncoderParams,
		FFmpegParams:  body.FFmpegParams,
		MinFrames:     body.MinFrames,
		MaxFrames:     body.MaxFrames,
		Priority:      body.Priority,
		OnComplete:    body.OnComplete,
	})
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ids": ids})
}

type modifyProjectBody struct {
	Password      string  `json:"password"`
	Priority      *int    `json:"priority"`
	OnComplete    *string `json:"on_complete"`
	EncoderParams *string `json:"encoder_params"`
	FFmpegParams  *string `json:"ffmpeg_params"`
}

// handleModifyProject implements POST /api/modify/<pid>.
func (s *Server) handleModifyProject(c *gin.Context) {
	var body modifyProjectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if !s.checkPassword(body.Password) {
		c.Status(http.StatusForbidden)
		return
	}

	err := s.reg.ModifyProject(c.Param("pid"), registry.ProjectPatch{
		Priority:      body.Priority,
		OnComplete:    body.OnComplete,
		EncoderParams: body.EncoderParams,
		FFmpegParams:  body.FFmpegParams,
	})
	if err != nil {
		c.String(http.StatusNotFound, err.Error())
		return
	}
	c.Status(http.StatusOK)
}

type deleteProjectBody struct {
	Password string `json:"password"`
}

// handleDeleteProject implements POST /api/delete_project/<pid>.
func (s *Server) handleDeleteProject(c *gin.Context) {
	var body deleteProjectBody
	// A missing body is fine when no password is configured.
	_ = c.ShouldBindJSON(&body)
	if !s.checkPassword(body.Password) {
		c.Status(http.StatusForbidden)
		return
	}

	if err := s.reg.DeleteProject(c.Param("pid")); err != nil {
		c.String(http.StatusNotFound, err.Error())
		return
	}
	c.Status(http.StatusOK)
}
