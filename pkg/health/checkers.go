package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck flags a goroutine leak. The count creeping past the
// threshold usually means settlement transactions or request handlers are
// stuck waiting on the database.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("%d goroutines, threshold %d", n, threshold)
		}
		return nil
	}
}
