package dummydb

import (
	"sync"

	"github.com/cadenza-app/cadenza/core/event"
	"github.com/cadenza-app/cadenza/core/lead"
	"github.com/cadenza-app/cadenza/core/order"
	"github.com/cadenza-app/cadenza/core/resource"
	"github.com/cadenza-app/cadenza/core/task"
	"github.com/cadenza-app/cadenza/core/user"
)

type (
	DB struct {
		user     *userTable
		lead     *leadTable
		event    *eventTable
		order    *orderTable
		task     *taskTable
		resource *resourceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	leadTable struct {
		sync.RWMutex
		table map[string]*lead.Lead
	}

	eventTable struct {
		sync.RWMutex
		events  map[string]*event.Event
		classes map[string]*event.Class
	}

	orderTable struct {
		sync.RWMutex
		orders    map[string]*order.Order
		batches   map[string]*order.Batch
		lastBatch int
	}

	taskTable struct {
		sync.RWMutex
		table map[string]*task.Task
	}

	resourceTable struct {
		sync.RWMutex
		table map[string]*resource.Resource
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		lead:     &leadTable{table: make(map[string]*lead.Lead)},
		event:    &eventTable{events: make(map[string]*event.Event), classes: make(map[string]*event.Class)},
		order:    &orderTable{orders: make(map[string]*order.Order), batches: make(map[string]*order.Batch)},
		task:     &taskTable{table: make(map[string]*task.Task)},
		resource: &resourceTable{table: make(map[string]*resource.Resource)},
	}
	return db, nil
}
