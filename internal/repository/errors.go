package repository

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds 字段为空或超过 schema 限制
var ErrOutOfBounds = errors.New("field violates schema bounds")

// StorageError 存储层失败（连接、磁盘、约束），上层只展示通用提示
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func newStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError 判断错误链中是否包含 StorageError
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
