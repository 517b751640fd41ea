package main

import (
	"log"
	"os"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/order"
	"github.com/cadenza-app/cadenza/storage/database"
	dummydb "github.com/cadenza-app/cadenza/storage/database/dummy"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	cli, closeDB, err := setup(core.Conf)
	errAndDie(err)
	defer closeDB()

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func setup(conf *core.Config) (*commandLine, func(), error) {
	if conf.Database.Engine == "dummy" {
		db, err := dummydb.Open()
		if err != nil {
			return nil, nil, err
		}
		cli := &commandLine{
			usrRepo: dummydb.NewUserRepository(db),
			ordSvc:  order.NewService(dummydb.NewOrderRepository(db)),
			migrate: func() error { return nil }, // nothing to migrate
		}
		return cli, func() {}, nil
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	cli := &commandLine{
		usrRepo: database.NewUserRepository(db),
		ordSvc:  order.NewService(database.NewOrderRepository(db)),
		migrate: func() error { return database.Migrate(db) },
	}
	return cli, func() { _ = db.Close() }, nil
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
