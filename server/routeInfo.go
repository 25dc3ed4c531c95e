package server

import (
	"net/http"

	"logreplay/spelldata"

	"github.com/gin-gonic/gin"
)

type profileInfo struct {
	Name      string              `json:"name"`
	Abilities []spelldata.Ability `json:"abilities"`
}

func (s *server) routeProfiles(c *gin.Context) {
	catalog := s.pool.Catalog()

	names := s.pool.Profiles()
	r := make([]profileInfo, 0, len(names))
	for _, name := range names {
		r = append(r, profileInfo{Name: name, Abilities: catalog.ForProfile(name)})
	}

	c.JSON(http.StatusOK, r)
}

func (s *server) routeHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"profiles": len(s.pool.Profiles()),
		"waiting":  s.pool.Waiting(),
	})
}
