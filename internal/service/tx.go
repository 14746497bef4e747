package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/repository"
)

// ErrConcurrentUpdate 并发冲突重试后仍失败，可安全重试
var ErrConcurrentUpdate = errors.New("数据正在被其他操作更新，请稍后重试")

const defaultMaxAttempts = 3

// txRunner 在单个事务内执行读-改-写，冲突时整体重试
type txRunner struct {
	db          *gorm.DB
	maxAttempts int
	logger      *zap.Logger
}

func newTxRunner(db *gorm.DB, maxAttempts int, logger *zap.Logger) *txRunner {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &txRunner{db: db, maxAttempts: maxAttempts, logger: logger}
}

func (r *txRunner) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		r.logger.Warn("transaction conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
	}
	r.logger.Error("transaction conflict not resolved", zap.String("op", op), zap.Error(err))
	return ErrConcurrentUpdate
}

// isRetryable 版本冲突、唯一键竞争创建、死锁和锁等待超时
func isRetryable(err error) bool {
	if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	return false
}
