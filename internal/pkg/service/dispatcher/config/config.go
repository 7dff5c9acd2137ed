// Package config provides configuration of the dispatcher process.
//
// Flags take precedence, an unset flag falls back to the TF_YARN_*
// environment variable, the launcher usually passes both ways.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"

	"github.com/nateagr/tf-yarn/internal/pkg/env"
	"github.com/nateagr/tf-yarn/internal/pkg/service/common/etcdclient"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

const ENVPrefix = "TF_YARN_"

type Config struct {
	Verbose    bool                   `validate:"-"`
	Task       string                 `validate:"required"`
	NumWorkers int                    `validate:"min=1"`
	NumPS      int                    `validate:"min=0"`
	Host       string                 `validate:"-"`
	EntryPoint string                 `validate:"required"`
	Etcd       etcdclient.Credentials ``
}

func NewConfig() Config {
	return Config{
		EntryPoint: "",
		NumWorkers: 1,
		NumPS:      0,
	}
}

func LoadFrom(args []string, envs env.Provider) (Config, error) {
	cfg := NewConfig()

	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SortFlags = true
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug messages")
	fs.StringVar(&cfg.Task, "task", cfg.Task, `own task identity, "<type>_<index>", for example "worker_0"`)
	fs.IntVar(&cfg.NumWorkers, "num-workers", cfg.NumWorkers, "expected number of worker tasks in the run")
	fs.IntVar(&cfg.NumPS, "num-ps", cfg.NumPS, "expected number of parameter server tasks in the run")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "host under which the own address is advertised, the hostname by default")
	fs.StringVar(&cfg.EntryPoint, "entry-point", cfg.EntryPoint, "name of the registered task entry point")
	fs.StringVar(&cfg.Etcd.Endpoint, "etcd-endpoint", cfg.Etcd.Endpoint, "etcd endpoint")
	fs.StringVar(&cfg.Etcd.Namespace, "etcd-namespace", cfg.Etcd.Namespace, "etcd namespace, the run identifier shared by all participants")
	fs.StringVar(&cfg.Etcd.Username, "etcd-username", cfg.Etcd.Username, "etcd username")
	fs.StringVar(&cfg.Etcd.Password, "etcd-password", cfg.Etcd.Password, "etcd password")
	if err := fs.Parse(args[1:]); err != nil {
		return cfg, err
	}

	// An unset flag falls back to the ENV variable
	fs.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			if value, found := envs.Lookup(envName(f.Name)); found {
				_ = f.Value.Set(value)
			}
		}
	})

	return cfg, cfg.Validate()
}

func envName(flagName string) string {
	return ENVPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func (c Config) Validate() error {
	errs := errors.NewMultiError()
	if err := validator.New().Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, item := range validationErrs {
				errs.Append(errors.Errorf(`invalid configuration field "%s": failed "%s" validation`, item.Field(), item.Tag()))
			}
		} else {
			errs.Append(err)
		}
	}
	return errs.ErrorOrNil()
}
