// Package emulator serves the platform's RPC endpoints from memory. It
// implements the protocol, not a judge: code "passes" a test case when it
// contains the expected output.
package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"codeduel/internal/common/http/middleware"
	"codeduel/internal/duel/remote"
	"codeduel/pkg/utils/logger"
	"codeduel/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Platform error ids outside the client's conflict and login tables.
const (
	idUnknownUser     = 401
	idNotParticipant  = 601
	idNotOwner        = 602
	idUnknownSandbox  = 603
	idUnknownTest     = 604
	idUnknownSolution = 605
	idNotShared       = 606
	idNoSubmission    = 607
)

const defaultShutdownTimeout = 5 * time.Second

// Account is a user the emulator accepts logins from.
type Account struct {
	ID       int64  `yaml:"id"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Handle   string `yaml:"handle"`
	Nickname string `yaml:"nickname"`
}

// Config sizes the emulated platform.
type Config struct {
	Addr       string        `yaml:"addr"`
	MaxPlayers int           `yaml:"maxPlayers"`
	Duration   time.Duration `yaml:"duration"`
	Languages  []string      `yaml:"languages"`
	Accounts   []Account     `yaml:"accounts"`

	CORS middleware.CORSConfig `yaml:"cors"`
}

// DefaultConfig returns three accounts, a handful of languages and
// 15 minute sessions of up to 8 players.
func DefaultConfig() Config {
	return Config{
		Addr:       "127.0.0.1:8080",
		MaxPlayers: 8,
		Duration:   15 * time.Minute,
		Languages:  []string{"Bash", "C", "C++", "Go", "Java", "JavaScript", "Python3", "Ruby"},
		Accounts: []Account{
			{ID: 1001, Email: "ada@example.com", Password: "lovelace", Handle: "a1b2c3d4e5f60718293a4b5c6d7e8f90", Nickname: "ada"},
			{ID: 1002, Email: "alan@example.com", Password: "turing", Handle: "0f1e2d3c4b5a69788796a5b4c3d2e1f0", Nickname: "alan"},
			{ID: 1003, Email: "grace@example.com", Password: "hopper", Handle: "00112233445566778899aabbccddeeff", Nickname: "grace"},
		},
	}
}

type handlerFunc func(c *gin.Context, args []json.RawMessage)

// Server is the in-memory platform.
type Server struct {
	cfg Config
	now func() time.Time

	mu         sync.Mutex
	sessions   map[string]*sessionRecord
	order      []string
	sandboxes  map[string]*sandboxRecord
	solutions  map[int64]*solutionRecord
	nextSerial int64
	nextSubmit int64

	handlers map[string]handlerFunc
	router   *gin.Engine
}

// New builds a Server. Zero fields of cfg take DefaultConfig values.
func New(cfg Config) *Server {
	def := DefaultConfig()
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = def.MaxPlayers
	}
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = def.Languages
	}
	if len(cfg.Accounts) == 0 {
		cfg.Accounts = def.Accounts
	}
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}

	s := &Server{
		cfg:        cfg,
		now:        time.Now,
		sessions:   make(map[string]*sessionRecord),
		sandboxes:  make(map[string]*sandboxRecord),
		solutions:  make(map[int64]*solutionRecord),
		nextSerial: 1000000,
		nextSubmit: 5000000,
	}
	s.handlers = map[string]handlerFunc{
		remote.EndpointFindSession:   s.findSession,
		remote.EndpointPending:       s.pendingSessions,
		remote.EndpointJoin:          s.joinSession,
		remote.EndpointStart:         s.startSession,
		remote.EndpointLeave:         s.leaveSession,
		remote.EndpointCreatePrivate: s.createPrivateSession,
		remote.EndpointOpenSandbox:   s.openSandbox,
		remote.EndpointShareSolution: s.shareSolution,
		remote.EndpointInitSandbox:   s.initSandbox,
		remote.EndpointPlay:          s.play,
		remote.EndpointSubmit:        s.submit,
		remote.EndpointFindSolution:  s.findSolution,
		remote.EndpointLogin:         s.login,
		remote.EndpointLanguageIDs:   s.languageIDs,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(s.cfg.CORS))
	router.Use(middleware.TraceContextMiddleware())
	router.Use(middleware.RequestLogger())
	router.POST(remote.ServicesPrefix+":service/:method", s.dispatch)
	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "unknown endpoint "+c.Request.URL.Path)
	})
	return router
}

// Handler exposes the router, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) dispatch(c *gin.Context) {
	endpoint := c.Param("service") + "/" + c.Param("method")
	handler, ok := s.handlers[endpoint]
	if !ok {
		response.NotFound(c, "unknown endpoint "+endpoint)
		return
	}
	var args []json.RawMessage
	if err := c.ShouldBindJSON(&args); err != nil {
		response.BadRequest(c, "arguments must be a JSON array")
		return
	}
	handler(c, args)
}

// Run serves on cfg.Addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "emulator started", zap.String("addr", listener.Addr().String()))
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func decodeArg(args []json.RawMessage, i int, v interface{}) bool {
	if i >= len(args) {
		return false
	}
	return json.Unmarshal(args[i], v) == nil
}

func (s *Server) account(id int64) (Account, bool) {
	for _, a := range s.cfg.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}
