// Package server wires the configuration, logger, DB pool, worker pool,
// and reactor layers into a single Run/Stop facade -- the Go
// equivalent of the reference's WebServer class, with every collaborator
// injected explicitly rather than held as package-level state.
package server

import (
	"fmt"

	"github.com/yourusername/ember/internal/config"
	"github.com/yourusername/ember/internal/logx"
	"github.com/yourusername/ember/pkg/ember/conn"
	"github.com/yourusername/ember/pkg/ember/dbpool"
	"github.com/yourusername/ember/pkg/ember/reactor"
	"github.com/yourusername/ember/pkg/ember/workerpool"
)

// Server owns every long-lived collaborator needed to run the reactor:
// the logger, DB pool, worker pool, and master reactor.
type Server struct {
	settings *config.Settings
	logger   *logx.Logger
	dbPool   *dbpool.Pool
	workers  *workerpool.Pool
	master   *reactor.MasterReactor

	activeUserCount int64
}

// New builds every collaborator from settings but does not start
// accepting connections; call Run for that.
func New(settings *config.Settings) (*Server, error) {
	logger, err := logx.New(settings.Log.Path, logx.ParseLevel(settings.Log.Level), settings.Log.QueueSize)
	if err != nil {
		return nil, fmt.Errorf("server: logger: %w", err)
	}

	dbPool, err := dbpool.Open(dbpool.Config{
		Host:     settings.Database.Host,
		Port:     settings.Database.Port,
		User:     settings.Database.User,
		Password: settings.Database.Password,
		DBName:   settings.Database.DBName,
		PoolSize: settings.Pool.SQLPoolNum,
	})
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("server: db pool: %w", err)
	}

	s := &Server{settings: settings, logger: logger, dbPool: dbPool}

	s.workers = workerpool.New(settings.Pool.ThreadPoolNum, func(recovered any) {
		s.logger.Errorf("worker panic recovered: %v", recovered)
	})

	router := conn.NewUserRouter(dbPool)
	master, err := reactor.New(
		settings.Server.Host, settings.Server.Port, settings.Server.SubReactorNum,
		settings.Server.SrcDir, router, &s.activeUserCount, s.workers, s.logger,
	)
	if err != nil {
		s.workers.Close()
		s.dbPool.Close()
		s.logger.Close()
		return nil, fmt.Errorf("server: master reactor: %w", err)
	}
	s.master = master
	return s, nil
}

// Run blocks accepting and serving connections until Stop is called from
// another goroutine.
func (s *Server) Run() {
	s.logger.Infof("ember listening on %s:%d", s.settings.Server.Host, s.settings.Server.Port)
	s.master.Run()
}

// Stop shuts down the reactor, the worker pool, the DB pool, and finally
// the logger, in that order, so no late log record is lost mid-shutdown.
func (s *Server) Stop() {
	s.master.Stop()
	s.workers.Close()
	s.dbPool.Close()
	s.logger.Infof("ember stopped, active connections at shutdown: %d", s.activeUserCount)
	s.logger.Close()
}

// ActiveUserCount reports the live connection count across every
// sub-reactor, for diagnostics.
func (s *Server) ActiveUserCount() int64 {
	return s.activeUserCount
}
