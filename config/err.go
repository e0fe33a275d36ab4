package config

import (
	"errors"

	"github.com/ezrec/azpr/translate"
)

var f = translate.From

var (
	ErrFormat   = errors.New(f("configuration format unknown"))
	ErrField    = errors.New(f("unknown field"))
	ErrSize     = errors.New(f("memory size invalid"))
	ErrMaster   = errors.New(f("bus master assignment invalid"))
	ErrSlave    = errors.New(f("bus slave assignment invalid"))
	ErrPolicy   = errors.New(f("arbitration policy invalid"))
	ErrNegative = errors.New(f("value must not be negative"))
	ErrIrq      = errors.New(f("interrupt line invalid"))
)

// ErrConfig locates a configuration error at a named field.
type ErrConfig struct {
	Field string
	Err   error
}

func (err *ErrConfig) Error() string {
	return f("config %v: %v", err.Field, err.Err)
}

func (err *ErrConfig) Unwrap() error {
	return err.Err
}
