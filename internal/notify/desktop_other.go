//go:build !unix

package notify

import (
	"context"
	"errors"
)

func (d *Desktop) send(context.Context, string, string, string) error {
	return errors.ErrUnsupported
}
