package providers

import (
	"errors"
	"fmt"
	"rankview/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

// Validate checks struct tags first, then cross-field rules the tags cannot express.
func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	v.StopOnError = false
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.String())
	}

	if cv.conf.Cache.Enabled && cv.conf.Cache.TTL <= 0 {
		return errors.New("invalid config: cache.ttl must be positive when cache is enabled")
	}
	if cv.conf.Warmup.Enabled && cv.conf.Warmup.Interval <= 0 {
		return errors.New("invalid config: warmup.interval must be positive when warmup is enabled")
	}
	if cv.conf.Upstream.RateLimit < 0 || cv.conf.Upstream.Burst < 0 {
		return errors.New("invalid config: upstream rate limit and burst must not be negative")
	}
	return nil
}
