package api

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Desarso/datarex/models"
	"github.com/gin-gonic/gin"
)

// MaxAnalyzeTokens caps max_tokens on image analysis requests.
const MaxAnalyzeTokens = 4096

// formValue reads name from the query string, then from the form body.
func formValue(c *gin.Context, name string) string {
	if v, ok := c.GetQuery(name); ok {
		return v
	}
	return c.PostForm(name)
}

func optionalFloat(c *gin.Context, name string, lo, hi float64) (*float64, error) {
	raw := formValue(c, name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	if v < lo || v > hi {
		return nil, fmt.Errorf("%s must be between %g and %g", name, lo, hi)
	}
	return &v, nil
}

func optionalInt(c *gin.Context, name string, hi int) (*int, error) {
	raw := formValue(c, name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	if v <= 0 || v > hi {
		return nil, fmt.Errorf("%s must be greater than 0 and at most %d", name, hi)
	}
	return &v, nil
}

// generationParams validates temperature, top_p and max_tokens.
func generationParams(c *gin.Context) (models.GenerationParams, error) {
	var (
		p   models.GenerationParams
		err error
	)
	if p.Temperature, err = optionalFloat(c, "temperature", models.MinTemperature, models.MaxTemperature); err != nil {
		return p, err
	}
	if p.TopP, err = optionalFloat(c, "top_p", models.MinTopP, models.MaxTopP); err != nil {
		return p, err
	}
	if p.MaxTokens, err = optionalInt(c, "max_tokens", models.MaxTokensLimit); err != nil {
		return p, err
	}
	return p, nil
}
