package io

import (
	"errors"

	"github.com/ezrec/azpr/translate"
)

var f = translate.From

var (
	// Memory errors
	ErrImageSize   = errors.New(f("image larger than memory"))
	ErrImageFormat = errors.New(f("image format invalid"))

	// DMA errors
	ErrDmaBusy = errors.New(f("dma busy"))
)
