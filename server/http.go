package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/royalur/network"
)

func (s *GameServer) routes() *gin.Engine {
	if !s.cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// WebSocket for live play
	r.GET("/ws", s.handleWebSocket)
	r.GET("/metrics", gin.WrapH(s.monitor.Handler()))

	games := r.Group("/games")
	games.POST("", s.createGameHandler())
	games.GET("", s.listGamesHandler())
	games.GET("/:id", s.getGameHandler())
	games.DELETE("/:id", s.endGameHandler())
	games.GET("/:id/snapshot", s.snapshotHandler())
	games.GET("/:id/moves", s.legalMovesHandler())
	games.POST("/:id/roll", s.rollHandler())
	games.POST("/:id/move", s.moveHandler())
	games.POST("/:id/ack", s.acknowledgeHandler())
	games.POST("/:id/gate", s.bonusGateHandler())
	games.POST("/:id/reselect", s.reselectHandler())

	return r
}

func abortWithError(c *gin.Context, err error) {
	resp := errorResponse(err)
	c.AbortWithStatusJSON(statusFor(resp.Code), resp)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, network.ErrorResponse{Code: network.CodeBadRequest, Message: message})
}

func (s *GameServer) createGameHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req network.CreateGameRequest
		// an empty body means "no seed"
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}
		view, err := s.games.CreateGame(c.Request.Context(), req.Seed)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

func (s *GameServer) listGamesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := s.games.ListGames(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"games": ids})
	}
}

func (s *GameServer) getGameHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := s.games.View(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (s *GameServer) endGameHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.games.EndGame(c.Request.Context(), c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *GameServer) snapshotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := s.games.Snapshot(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func (s *GameServer) legalMovesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		roll, err := strconv.Atoi(c.Query("roll"))
		if err != nil {
			badRequest(c, "roll query parameter required")
			return
		}
		moves, err := s.games.LegalMoves(c.Request.Context(), c.Param("id"), roll)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"roll": roll, "moves": moves})
	}
}

func (s *GameServer) rollHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		out, err := s.games.Roll(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.pushState(c.Request.Context(), id)
		c.JSON(http.StatusOK, out)
	}
}

func (s *GameServer) moveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req network.MoveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id := c.Param("id")
		cons, err := s.games.ChooseMove(c.Request.Context(), id, req.Move)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.pushState(c.Request.Context(), id)
		c.JSON(http.StatusOK, cons)
	}
}

// phaseReply answers with the phase reached after a successful operation.
func (s *GameServer) phaseReply(c *gin.Context, id string, err error) {
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.pushState(c.Request.Context(), id)
	phase, err := s.games.Phase(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, phase)
}

func (s *GameServer) acknowledgeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		s.phaseReply(c, id, s.games.Acknowledge(c.Request.Context(), id))
	}
}

func (s *GameServer) bonusGateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req network.BonusGateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id := c.Param("id")
		s.phaseReply(c, id, s.games.ResolveBonusGate(c.Request.Context(), id, req.Earned))
	}
}

func (s *GameServer) reselectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		s.phaseReply(c, id, s.games.Reselect(c.Request.Context(), id))
	}
}
