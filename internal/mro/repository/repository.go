package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	db *gorm.DB

	User        *UserRepository
	Division    *DivisionRepository
	Job         *JobRepository
	Operation   *OperationRepository
	Material    *MaterialRepository
	Procurement *ProcurementRepository
	Machine     *MachineRepository
	Comment     *CommentRepository
	File        *FileRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:          db,
		User:        NewUserRepository(db),
		Division:    NewDivisionRepository(db),
		Job:         NewJobRepository(db),
		Operation:   NewOperationRepository(db),
		Material:    NewMaterialRepository(db),
		Procurement: NewProcurementRepository(db),
		Machine:     NewMachineRepository(db),
		Comment:     NewCommentRepository(db),
		File:        NewFileRepository(db),
	}
}

// Transaction runs fn with a repository set bound to a single database
// transaction. Returning an error rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// DB exposes the underlying handle for health checks and seeding.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
