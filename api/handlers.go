package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/Desarso/datarex/models"
	"github.com/Desarso/datarex/stores"
	"github.com/Desarso/datarex/vision"
	"github.com/gin-gonic/gin"
)

type createThreadRequest struct {
	Title    string `json:"title"`
	Provider string `json:"provider"`
}

type providerInfo struct {
	Name       string            `json:"name"`
	Capability models.Capability `json:"capability"`
	Default    bool              `json:"default"`
}

func (s *Server) health(c *gin.Context) {
	if err := s.manager.Store().Ping(c.Request.Context()); err != nil {
		s.logger.Printf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listProviders(c *gin.Context) {
	router := s.manager.Router()
	out := make([]providerInfo, 0)
	for _, name := range router.Names() {
		p, err := router.Get(name)
		if err != nil {
			continue
		}
		out = append(out, providerInfo{Name: name, Capability: p.Capability(), Default: name == router.DefaultName()})
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

func (s *Server) createThread(c *gin.Context) {
	var req createThreadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	id, err := s.manager.CreateThread(c.Request.Context(), currentUser(c), req.Title, req.Provider)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"thread_id": id})
}

func (s *Server) listThreads(c *gin.Context) {
	threads, err := s.manager.ListUserThreads(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

func (s *Server) updateThread(c *gin.Context) {
	var update stores.ThreadUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	info, err := s.manager.UpdateThread(c.Request.Context(), c.Param("id"), currentUser(c), update)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) deleteThread(c *gin.Context) {
	ok, err := s.manager.DeleteThread(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) getMessages(c *gin.Context) {
	msgs, err := s.manager.GetThreadMessages(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (s *Server) sendMessage(c *gin.Context) {
	threadID, userID := c.Param("id"), currentUser(c)

	text := formValue(c, "message")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	params, err := generationParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var file *models.FileAttachment
	if header, err := c.FormFile("file"); err == nil {
		path, name, err := s.saveUpload(header)
		if err != nil {
			s.uploadError(c, err)
			return
		}
		if file, err = s.manager.ProcessUpload(c.Request.Context(), threadID, userID, path, name); err != nil {
			os.Remove(path)
			s.writeError(c, err)
			return
		}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := s.manager.SendMessage(c.Request.Context(), threadID, userID, text, file, params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) analyzeImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	prompt := formValue(c, "prompt")
	temperature, err := optionalFloat(c, "temperature", models.MinTemperature, models.MaxTemperature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	maxTokens, err := optionalInt(c, "max_tokens", MaxAnalyzeTokens)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, n := vision.DefaultTemperature, vision.DefaultMaxTokens
	if temperature != nil {
		t = *temperature
	}
	if maxTokens != nil {
		n = *maxTokens
	}

	path, _, err := s.saveUpload(header)
	if err != nil {
		s.uploadError(c, err)
		return
	}
	result, err := s.manager.AnalyzeImage(c.Request.Context(), path, prompt, t, n)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) uploadError(c *gin.Context, err error) {
	if errors.Is(err, errFileTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	s.writeError(c, err)
}
