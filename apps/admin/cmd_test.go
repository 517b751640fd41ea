package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cadenza-app/cadenza/core/order"
	"github.com/cadenza-app/cadenza/core/user"
	dummydb "github.com/cadenza-app/cadenza/storage/database/dummy"
)

var usrRepo user.Repository

func setupCLI(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	return &commandLine{
		usrRepo: usrRepo,
		ordSvc:  order.NewService(dummydb.NewOrderRepository(db)),
		migrate: func() error { return nil },
	}
}

func createUser(t *testing.T, uname, email, pwd string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      uname,
		Username:  uname,
		Email:     email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	usr, err := usrRepo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setupCLI(t)

	usr := createUser(t, "awe", "awe@test.cd", "mdr")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setupCLI(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cr3t"), nil }

	// creates
	if err := cli.run([]string{"admin", "adduser", "-username", "kinder", "-email", "kinder@test.cd", "-admin"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	usr, err := usrRepo.GetUserByUsername("kinder")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed, %v", err)
	}
	if !usr.IsActive {
		t.Error("expected new user to be active")
	}
	if !usr.IsAdmin() {
		t.Errorf("expected admin roles, got %v", usr.Roles)
	}
	if err := usr.CheckPassword("s3cr3t"); err != nil {
		t.Error("password was not set")
	}

	// updates the same user
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("n3w-s3cr3t"), nil }
	if err := cli.run([]string{"admin", "adduser", "-username", "kinder", "-email", "kinder@test.cd"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	refreshed, err := usrRepo.GetUserByUsername("kinder")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed, %v", err)
	}
	if refreshed.ID != usr.ID {
		t.Errorf("expected update, got a new user %q", refreshed.ID)
	}
	if err := refreshed.CheckPassword("n3w-s3cr3t"); err != nil {
		t.Error("password was not updated")
	}
}

func Test_commandLine_buildBatch(t *testing.T) {
	cli := setupCLI(t)

	// no open orders yet
	if err := cli.run([]string{"admin", "buildbatch"}); err == nil {
		t.Error("expected an error with no open orders")
	}

	if _, err := cli.ordSvc.Create("teacher-id", order.NewOrder{
		ClassID:     "class-id",
		StudentName: "Mia",
		Garment:     "polo",
		Size:        "S",
		Quantity:    2,
	}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	cutoff := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	if err := cli.run([]string{"admin", "buildbatch", "-cutoff", cutoff}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}

	batches, err := cli.ordSvc.QueryBatches()
	if err != nil {
		t.Fatalf("QueryBatches() failed, %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].Number != 1 {
		t.Errorf("expected batch #1, got #%d", batches[0].Number)
	}
	if len(batches[0].OrderIDs) != 1 {
		t.Errorf("expected 1 order in batch, got %d", len(batches[0].OrderIDs))
	}

	// bad cutoff
	if err := cli.run([]string{"admin", "buildbatch", "-cutoff", "lol"}); err == nil {
		t.Error("expected an error for an invalid cutoff")
	}
}
