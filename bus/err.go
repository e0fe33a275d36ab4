package bus

import (
	"errors"

	"github.com/ezrec/azpr/translate"
)

var f = translate.From

var (
	ErrMasterInvalid = errors.New(f("bus master invalid"))
	ErrMasterBusy    = errors.New(f("bus master busy"))
	ErrSlaveInvalid  = errors.New(f("bus slave invalid"))
	ErrSlaveAttached = errors.New(f("bus slave already attached"))
	ErrPolicyInvalid = errors.New(f("bus arbitration policy invalid"))
)
