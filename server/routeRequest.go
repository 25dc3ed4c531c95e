package server

import (
	"net/http"
	"strings"
	"time"

	"logreplay/analysis"
	"logreplay/analysispool"
	"logreplay/share"

	"github.com/dpapathanasiou/go-recaptcha"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	tokenTimeout = 10 * time.Second
	maxBodyBytes = 32 << 20
)

func remoteAddr(c *gin.Context) string {
	var remoteAddr string
	if v := c.GetHeader("X-Forwarded-For"); v != "" {
		remoteAddr = strings.TrimSpace(strings.Split(v, ",")[0])
	}
	if remoteAddr == "" {
		if v := c.GetHeader("X-Real-Ip"); v != "" {
			remoteAddr = v
		}
	}
	if remoteAddr == "" {
		remoteAddr = c.ClientIP()
	}
	return remoteAddr
}

func (s *server) confirm(c *gin.Context, token string) bool {
	if !s.recaptcha {
		return true
	}

	ok, err := recaptcha.Confirm(remoteAddr(c), token)
	if err != nil {
		s.logger.Warn("recaptcha", zap.Error(err))
		return false
	}
	return ok
}

// routeRequest serves the websocket client. With reCAPTCHA enabled the first
// message is the token.
func (s *server) routeRequest(c *gin.Context) {
	if !s.sessions.TryAcquire() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many sessions"})
		return
	}
	defer s.sessions.Release()

	ws, err := websocketUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("upgrade", zap.Error(err))
		return
	}
	defer ws.Close()

	////////////////////////////////////////////////////////////////////////////////////////////////////

	if s.recaptcha {
		ws.SetReadDeadline(time.Now().Add(tokenTimeout))
		_, msg, err := ws.ReadMessage()
		if err != nil {
			s.logger.Debug("read token", zap.Error(err))
			return
		}
		if !s.confirm(c, string(msg)) {
			return
		}
		ws.SetReadDeadline(time.Time{})
	}

	s.pool.Do(c.Request.Context(), ws)
}

func (s *server) routeAnalyze(c *gin.Context) {
	var req analysis.Request

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(body).Decode(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": analysispool.ErrInvalidRequest.Error()})
		return
	}

	if !s.confirm(c, req.Token) {
		c.JSON(http.StatusForbidden, gin.H{"error": "recaptcha failed"})
		return
	}

	r, cached, err := s.pool.Analyze(c.Request.Context(), req)
	if err != nil {
		if share.IsContextClosedError(err) {
			c.Abort()
			return
		}

		status := http.StatusInternalServerError
		cerr := analysispool.ClientError(err)
		if cerr == err {
			status = http.StatusUnprocessableEntity
		}
		c.Error(err)
		c.JSON(status, gin.H{"error": cerr.Error()})
		return
	}

	summary, err := analysis.RenderString(r, s.pool.Catalog())
	if err != nil {
		c.Error(err)
	}

	if cached {
		c.Header("X-Cache", "hit")
	} else {
		c.Header("X-Cache", "miss")
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":  r.RunID,
		"cached":  cached,
		"summary": summary,
		"result":  r,
	})
}
