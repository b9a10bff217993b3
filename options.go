package mscfb

import "go.uber.org/zap"

// Validation selects how load-time inconsistencies are handled. Permissive
// loading repairs or logs what other writers commonly get wrong; strict
// loading rejects it.
type Validation int

const (
	ValidationPermissive Validation = iota
	ValidationStrict
)

func (v Validation) IsStrict() bool {
	return v == ValidationStrict
}

func (v Validation) String() string {
	if v.IsStrict() {
		return "strict"
	}
	return "permissive"
}

type cfg struct {
	log        *zap.Logger
	validation Validation
}

// Option allows setting optional parameters of the CompoundFile.
type Option func(*cfg)

func defaultCfg() *cfg {
	return &cfg{
		log:        zap.NewNop(),
		validation: ValidationPermissive,
	}
}

// WithLogger returns an option to specify
// logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		if l != nil {
			c.log = l
		}
	}
}

// WithValidation returns an option to specify how strictly
// header counters and directory ordering are checked on load.
func WithValidation(v Validation) Option {
	return func(c *cfg) {
		c.validation = v
	}
}
