package etcdclient

import (
	"strings"

	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

// Credentials of the etcd cluster used as the rendezvous store.
type Credentials struct {
	Endpoint  string `validate:"required"`
	Namespace string `validate:"required"`
	Username  string
	Password  string
}

func (c *Credentials) Normalize() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.Namespace = strings.Trim(strings.TrimSpace(c.Namespace), "/") + "/"
}

func (c *Credentials) Validate() error {
	errs := errors.NewMultiError()
	if c.Endpoint == "" {
		errs.Append(errors.New("etcd endpoint is not set"))
	}
	if c.Namespace == "/" || c.Namespace == "" {
		errs.Append(errors.New("etcd namespace is not set"))
	}
	return errs.ErrorOrNil()
}
