package config

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rileyhilliard/oltstat/internal/errors"
)

// configValidate is shared; validator caches struct metadata per instance.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their YAML names, e.g. "transport.kind"
	configValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = configValidate.RegisterValidation("abspath", validateAbsPath)
}

func validateAbsPath(fl validator.FieldLevel) bool {
	return filepath.IsAbs(fl.Field().String())
}

// Validate checks the config and returns the first problem as a CONFIG
// error naming the offending key.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but oltstat only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade oltstat or lower the version field")
	}

	err := configValidate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.WrapWithCode(err, errors.ErrConfig, "Invalid config", "")
	}

	fe := fieldErrs[0]
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	return errors.WrapWithCode(err, errors.ErrConfig,
		fmt.Sprintf("Invalid value for %s: %v", key, fe.Value()),
		suggestionFor(key, fe))
}

func suggestionFor(key string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "required":
		return key + " must be set"
	case "abspath":
		return key + " must be an absolute path"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", key, orZero(fe.Param()))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", key, orZero(fe.Param()))
	case "lte":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	}
	return fmt.Sprintf("Check %s (failed %q)", key, fe.Tag())
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
