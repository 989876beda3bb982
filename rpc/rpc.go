package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/royalur/logger"
	"github.com/wfunc/royalur/services"
	"github.com/wfunc/royalur/state"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer creates an RPC server exposing the admin service.
func NewServer(addr string, svc *services.GameService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("Admin", NewAdminService(svc)); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService is the struct that exposes RPC methods.
// Methods follow the net/rpc signature: exported arguments, pointer reply,
// error return.
type AdminService struct {
	games *services.GameService
}

func NewAdminService(games *services.GameService) *AdminService {
	return &AdminService{games: games}
}

type GetSnapshotArgs struct {
	GameID string
}

type GetSnapshotReply struct {
	Snapshot state.Snapshot
}

func (a *AdminService) GetSnapshot(args *GetSnapshotArgs, reply *GetSnapshotReply) error {
	snap, err := a.games.Snapshot(context.Background(), args.GameID)
	if err != nil {
		return err
	}
	reply.Snapshot = snap
	return nil
}

// ListGamesArgs limits the reply to the first Limit ids; 0 means all.
type ListGamesArgs struct {
	Limit int
}

type ListGamesReply struct {
	GameIDs []string
}

func (a *AdminService) ListGames(args *ListGamesArgs, reply *ListGamesReply) error {
	ids, err := a.games.ListGames(context.Background())
	if err != nil {
		return err
	}
	if args.Limit > 0 && len(ids) > args.Limit {
		ids = ids[:args.Limit]
	}
	reply.GameIDs = ids
	return nil
}

type EndGameArgs struct {
	GameID string
}

type EndGameReply struct {
	Ended bool
}

func (a *AdminService) EndGame(args *EndGameArgs, reply *EndGameReply) error {
	if err := a.games.EndGame(context.Background(), args.GameID); err != nil {
		return err
	}
	reply.Ended = true
	return nil
}
