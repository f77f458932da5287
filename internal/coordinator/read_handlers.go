package coordinator

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/five82/grav1go/internal/discovery"
)

func (s *Server) handleGetProjects(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.Projects())
}

// sceneView and segmentView are the JSON shapes returned by
// get_project; unlike the persisted record they expose the derived
// open-job set too, since that is what an operator dashboard wants.
type sceneView struct {
	ID       string `json:"id"`
	Segment  string `json:"segment"`
	Start    int    `json:"start"`
	Frames   int    `json:"frames"`
	Filesize int64  `json:"filesize"`
	Bad      bool   `json:"bad"`
	Open     bool   `json:"open"`
	Workers  int    `json:"workers"`
}

type projectView struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	Priority      int         `json:"priority"`
	Encoder       string      `json:"encoder"`
	EncoderParams string      `json:"encoder_params"`
	FFmpegParams  string      `json:"ffmpeg_params"`
	InputFrames   int         `json:"input_frames"`
	Scenes        []sceneView `json:"scenes"`
}

func (s *Server) handleGetProject(c *gin.Context) {
	p, ok := s.reg.Project(c.Param("pid"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	view := projectView{
		ID:            p.ID,
		Status:        string(p.Status),
		Priority:      p.Priority,
		Encoder:       string(p.Encoder),
		EncoderParams: p.EncoderParams,
		FFmpegParams:  p.FFmpegParams,
		InputFrames:   p.InputFrames,
	}
	open := p.OpenJobs()
	for id, scene := range p.Scenes {
		job, isOpen := open[id]
		sv := sceneView{
			ID:       id,
			Segment:  scene.Segment,
			Start:    scene.Start,
			Frames:   scene.Frames,
			Filesize: scene.Filesize,
			Bad:      scene.Bad,
			Open:     isOpen,
		}
		if isOpen {
			sv.Workers = len(job.Workers)
		}
		view.Scenes = append(view.Scenes, sv)
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleGetHome(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.Home())
}

func (s *Server) handleGetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.Info())
}

// handleListDirectory implements GET /api/list_directory?path=...,
// the browse surface an operator uses to pick input files for
// add_project.
func (s *Server) handleListDirectory(c *gin.Context) {
	dir := c.Query("path")
	if dir == "" {
		dir = "."
	}
	entries, err := discovery.ListDirectory(dir)
	if err != nil {
		c.String(http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, entries)
}
