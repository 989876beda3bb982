package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wfunc/royalur/board"
	"github.com/wfunc/royalur/broadcast"
	"github.com/wfunc/royalur/config"
	"github.com/wfunc/royalur/logger"
	"github.com/wfunc/royalur/monitor"
	"github.com/wfunc/royalur/network"
	"github.com/wfunc/royalur/persistence"
	"github.com/wfunc/royalur/room"
	gameserver_rpc "github.com/wfunc/royalur/rpc"
	"github.com/wfunc/royalur/services"
	"github.com/wfunc/royalur/session"
	"github.com/wfunc/royalur/state"
	"github.com/wfunc/royalur/timer"
)

type GameServer struct {
	cfg            *config.Config
	engine         *gin.Engine
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	games          *services.GameService
	broadcaster    broadcast.Broadcaster
	monitor        *monitor.Monitor
	rpcServer      *gameserver_rpc.Server
	timers         *timer.Scheduler
	shutdownChan   chan struct{}
}

// NewGameServer wires every component around store. The RPC listener is only
// opened when cfg.Server.RPCAddress is set. opts apply to every game.
func NewGameServer(cfg *config.Config, store persistence.SnapshotStore, mon *monitor.Monitor, opts ...state.Option) (*GameServer, error) {
	topology, err := board.New(cfg.Game.GatedRosettes...)
	if err != nil {
		return nil, err
	}

	s := &GameServer{
		cfg:            cfg,
		roomManager:    room.NewRoomManager(),
		sessionManager: session.NewManager(),
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	b := broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.broadcaster = b
	opts = append([]state.Option{state.WithTopology(topology)}, opts...)
	s.games = services.NewGameService(s.roomManager, store, mon, b, opts...)

	// 初始化RPC服务器
	if cfg.Server.RPCAddress != "" {
		rpcServer, err := gameserver_rpc.NewServer(cfg.Server.RPCAddress, s.games)
		if err != nil {
			return nil, err
		}
		s.rpcServer = rpcServer
	}

	s.engine = s.routes()
	s.httpServer = &http.Server{Addr: cfg.Server.HTTPAddress, Handler: s.engine}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *GameServer) Handler() http.Handler {
	return s.engine
}

func (s *GameServer) Games() *services.GameService {
	return s.games
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	s.timers = timer.New(0)
	if sweep := s.cfg.Game.SweepInterval; sweep > 0 && s.cfg.Game.IdleTimeout > 0 {
		s.timers.Schedule("idle-sweep", sweep, sweep, func() {
			s.games.SweepIdle(s.cfg.Game.IdleTimeout)
		})
	}

	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	close(s.shutdownChan)
	if s.timers != nil {
		s.timers.Stop()
	}
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

// pushState sends the full view of a game to its attached sessions.
func (s *GameServer) pushState(ctx context.Context, gameID string) {
	view, err := s.games.View(ctx, gameID)
	if err != nil {
		logger.Log.Warnf("Game %s: cannot build view: %v", gameID, err)
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		logger.Log.Errorf("Game %s: encode view: %v", gameID, err)
		return
	}
	s.broadcaster.BroadcastToGame(gameID, network.MsgTypeGameState, data)
}

func statusFor(code string) int {
	switch code {
	case network.CodeInvalidMove:
		return http.StatusUnprocessableEntity
	case network.CodeWrongPhase:
		return http.StatusConflict
	case network.CodeNotFound:
		return http.StatusNotFound
	case network.CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) network.ErrorResponse {
	return network.ErrorResponse{Code: services.ErrorCode(err), Message: err.Error()}
}

// requestLogger logs each request through the shared zap logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
