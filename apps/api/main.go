package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/cadenza-app/cadenza/apps/api/echo"
	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/event"
	"github.com/cadenza-app/cadenza/core/lead"
	"github.com/cadenza-app/cadenza/core/order"
	"github.com/cadenza-app/cadenza/core/resource"
	"github.com/cadenza-app/cadenza/core/session"
	"github.com/cadenza-app/cadenza/core/task"
	"github.com/cadenza-app/cadenza/core/user"
	emailsvc "github.com/cadenza-app/cadenza/services/email"
	logsvc "github.com/cadenza-app/cadenza/services/logger"
	"github.com/cadenza-app/cadenza/storage/database"
	dummydb "github.com/cadenza-app/cadenza/storage/database/dummy"
	filestore "github.com/cadenza-app/cadenza/storage/files"
	sessionstore "github.com/cadenza-app/cadenza/storage/sessions"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up logger
	var logger core.Logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if conf.RollbarToken != "" {
		rl := logsvc.NewRollbarLogger(std, conf)
		rl.Enable(!conf.Debug)
		logger = rl
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// set up repositories; the dummy engine keeps everything in memory for
	// local hacking without postgres/redis
	var (
		userRepo     user.Repository
		leadRepo     lead.Repository
		eventRepo    event.Repository
		orderRepo    order.Repository
		taskRepo     task.Repository
		resourceRepo resource.Repository
		sessStore    session.Store
	)
	if conf.Database.Engine == "dummy" {
		db, err := dummydb.Open()
		errAndDie(logger, "opening dummy database", err)

		userRepo = dummydb.NewUserRepository(db)
		leadRepo = dummydb.NewLeadRepository(db)
		eventRepo = dummydb.NewEventRepository(db)
		orderRepo = dummydb.NewOrderRepository(db)
		taskRepo = dummydb.NewTaskRepository(db)
		resourceRepo = dummydb.NewResourceRepository(db)
		sessStore = sessionstore.NewMemoryStore()
	} else {
		db, err := database.Open(conf)
		errAndDie(logger, "opening database", err)
		defer db.Close()
		errAndDie(logger, "migrating database", database.Migrate(db))

		userRepo = database.NewUserRepository(db)
		leadRepo = database.NewLeadRepository(db)
		eventRepo = database.NewEventRepository(db)
		orderRepo = database.NewOrderRepository(db)
		taskRepo = database.NewTaskRepository(db)
		resourceRepo = database.NewResourceRepository(db)

		rdb, err := sessionstore.OpenRedis()
		errAndDie(logger, "opening redis", err)
		defer rdb.Close()
		sessStore = sessionstore.NewRedisStore(rdb)
	}

	files, err := filestore.NewLocalStore()
	errAndDie(logger, "setting up file storage", err)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	deps := &echoapi.Deps{
		Logger:      logger,
		SessionMgr:  session.NewManager(sessStore),
		UserSvc:     user.NewService(userRepo, mailSvc),
		LeadSvc:     lead.NewService(leadRepo, mailSvc),
		EventSvc:    event.NewService(eventRepo),
		OrderSvc:    order.NewService(orderRepo),
		TaskSvc:     task.NewService(taskRepo),
		ResourceSvc: resource.NewService(resourceRepo, files),
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(conf.Server.Addr, deps)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case <-server.ShutdownSignal():
		logger.Info("unrecoverable error: Start shutdown...")
		stop(server, logger)

	case sig := <-quit:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		stop(server, logger)
	}
}

// stop gives outstanding requests a deadline for completion.
func stop(server echoapi.Server, logger core.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func errAndDie(logger core.Logger, msg string, err error) {
	if err != nil {
		logger.Fatal(fmt.Sprintf("%s: %v", msg, err), err)
	}
}
