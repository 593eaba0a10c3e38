package inmemdb

import (
	"sync"

	"github.com/trezcool/classboard/core/material"
	"github.com/trezcool/classboard/core/user"
	"github.com/trezcool/classboard/core/work"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
		seq   map[string]int
	}

	materialTable struct {
		mutex sync.RWMutex
		table []material.Material
	}

	workTable struct {
		mutex  sync.RWMutex
		table  map[string]*work.Work
		seq    map[string]int
		totals *work.Totals
	}

	// DB is a process local store, used by tests and local debugging.
	DB struct {
		user     *userTable
		material *materialTable
		work     *workTable
		pkCount  int
		pkMutex  sync.Mutex
	}
)

func NewDB() *DB {
	return &DB{
		user:     &userTable{table: make(map[string]*user.User), seq: make(map[string]int)},
		material: &materialTable{},
		work:     &workTable{table: make(map[string]*work.Work), seq: make(map[string]int)},
	}
}

// nextSeq returns an increasing insertion number, used to order rows created within the same instant.
func (db *DB) nextSeq() int {
	db.pkMutex.Lock()
	defer db.pkMutex.Unlock()
	db.pkCount++
	return db.pkCount
}
