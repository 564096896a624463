package metadata

import "io"

// Disposer is implemented by instances that release resources after use.
type Disposer interface {
	Dispose() error
}

// Dispose releases an instance that implements Disposer or io.Closer. Other
// values are left alone. A panic raised while disposing is returned as an error.
func Dispose(instance any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()

	switch v := instance.(type) {
	case nil:
		return nil
	case Disposer:
		return v.Dispose()
	case io.Closer:
		return v.Close()
	default:
		return nil
	}
}
